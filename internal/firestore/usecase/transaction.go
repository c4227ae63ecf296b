package usecase

import (
	"context"

	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/shared/async"
	ferrors "firestore-service/internal/shared/errors"
)

// PerformTransaction runs fn through the store's transactional retry. Any
// failure, including one returned by fn or a cancelled context, ends as
// FailedTransaction.
func (s *FirestoreService) PerformTransaction(ctx context.Context, fn TransactionFunc) *async.Future[any] {
	ctx, log := s.begin(ctx, "PerformTransaction")
	if fn == nil {
		return reject[any](log, ferrors.NewInvalidRequestDTO().WithDetail("transaction", "nil block"))
	}

	return async.GoWrapped(ctx, s.executor, failedTransaction, func(ctx context.Context) (any, error) {
		var result any
		attempts := 0
		err := s.store.RunTransaction(ctx, func(ctx context.Context, tx repository.Transaction) error {
			attempts++
			v, err := fn(ctx, tx)
			if err != nil {
				return err
			}
			result = v
			return nil
		})
		if err != nil {
			log.Warnf("transaction failed after %d attempts: %v", attempts, err)
			return nil, err
		}
		return result, nil
	})
}

func failedTransaction(err error) error {
	if ferrors.IsKind(err, ferrors.KindFailedTransaction) {
		return err
	}
	return ferrors.NewFailedTransaction(err)
}
