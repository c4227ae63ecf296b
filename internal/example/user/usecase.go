package user

import (
	"context"

	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/shared/async"
)

// LoggedInUserUseCase is what the signed-in owner can do.
type LoggedInUserUseCase interface {
	SaveOwnerInfo(ctx context.Context, user UserEntity, uid string) *async.Future[model.Empty]
	FetchOwnerInfo(ctx context.Context, uid string) *async.Future[UserEntity]
}

// FirestoreLoggedInUserUseCase runs repository calls on its own executor so
// callers never block on storage.
type FirestoreLoggedInUserUseCase struct {
	repository UserRepository
	executor   async.Executor
}

var _ LoggedInUserUseCase = (*FirestoreLoggedInUserUseCase)(nil)

// NewFirestoreLoggedInUserUseCase uses async.Goroutines when executor is nil.
func NewFirestoreLoggedInUserUseCase(repository UserRepository, executor async.Executor) *FirestoreLoggedInUserUseCase {
	if executor == nil {
		executor = async.Goroutines
	}
	return &FirestoreLoggedInUserUseCase{repository: repository, executor: executor}
}

func (u *FirestoreLoggedInUserUseCase) SaveOwnerInfo(ctx context.Context, user UserEntity, uid string) *async.Future[model.Empty] {
	return async.Go(ctx, u.executor, func(ctx context.Context) (model.Empty, error) {
		return model.Empty{}, u.repository.SaveOwnerInfo(ctx, user, uid)
	})
}

func (u *FirestoreLoggedInUserUseCase) FetchOwnerInfo(ctx context.Context, uid string) *async.Future[UserEntity] {
	return async.Go(ctx, u.executor, func(ctx context.Context) (UserEntity, error) {
		return u.repository.FetchOwnerInfo(ctx, uid)
	})
}
