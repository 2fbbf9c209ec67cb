// Package storage - единица работы над репозиториями. Сервисы не знают про *gorm.DB:
// они получают Tx внутри Transaction и все записи внутри одного вызова либо коммитятся вместе,
// либо откатываются.
package storage

import (
	"context"

	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/team"
	"reviewassigner/pkg/user"
)

type Tx interface {
	Users() user.UsersRepo
	Teams() team.TeamsRepo
	PullRequests() pullrequest.PullRequestsRepo
}

type Store interface {
	// Transaction выполняет fn в одной транзакции; любая ошибка из fn откатывает все изменения
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}
