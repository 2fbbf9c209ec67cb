package memory

import "errors"

// ошибки ограничений, которые в Postgres выдала бы сама база
var (
	errDuplicate  = errors.New("memory: duplicate key")
	errForeignKey = errors.New("memory: foreign key violation")
)
