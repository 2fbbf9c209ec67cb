// Package service - бизнес-операции поверх хранилища: каждая мутация выполняется в одной
// транзакции storage.Store, а кеш чистится уже после коммита.
package service

import (
	"errors"
	"time"

	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/team"
	"reviewassigner/pkg/user"
)

var errInternal = errors.New("INTERNAL")

// для метрик: ограниченный набор значений вместо произвольного текста ошибки
var knownErrors = []error{
	team.ErrTeamExists,
	team.ErrTeamNotFound,
	user.ErrUserNotFound,
	pullrequest.ErrPRExists,
	pullrequest.ErrPRNotFound,
	pullrequest.ErrPRMerged,
	pullrequest.ErrNotAssigned,
	pullrequest.ErrNoCandidate,
}

func opErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known
		}
	}
	return errInternal
}

func utcNow() time.Time {
	return time.Now().UTC()
}
