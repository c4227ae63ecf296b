package user

import (
	"context"

	"firestore-service/internal/firestore/usecase"
)

// UserEntity is the owner as the application sees it.
type UserEntity struct {
	Name string
}

// UserRepository persists owners.
type UserRepository interface {
	SaveOwnerInfo(ctx context.Context, user UserEntity, uid string) error
	FetchOwnerInfo(ctx context.Context, uid string) (UserEntity, error)
	ListOwners(ctx context.Context) ([]UserEntity, error)
}

// FirestoreUserRepository implements UserRepository over the service facade.
type FirestoreUserRepository struct {
	service usecase.FirestoreServiceInterface
}

var _ UserRepository = (*FirestoreUserRepository)(nil)

func NewFirestoreUserRepository(service usecase.FirestoreServiceInterface) *FirestoreUserRepository {
	return &FirestoreUserRepository{service: service}
}

func (r *FirestoreUserRepository) SaveOwnerInfo(ctx context.Context, user UserEntity, uid string) error {
	endpoint := SaveOwnerInfo(OwnerInfoRequestDTO{Name: user.Name}, uid)
	_, err := r.service.SaveDocument(ctx, endpoint).Await(ctx)
	return err
}

func (r *FirestoreUserRepository) FetchOwnerInfo(ctx context.Context, uid string) (UserEntity, error) {
	dto, err := usecase.Request(ctx, r.service, FetchOwnerInfo(uid)).Await(ctx)
	if err != nil {
		return UserEntity{}, err
	}
	return UserEntity{Name: dto.Name}, nil
}

func (r *FirestoreUserRepository) ListOwners(ctx context.Context) ([]UserEntity, error) {
	dtos, err := usecase.RequestList(ctx, r.service, ListOwners()).Await(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]UserEntity, len(dtos))
	for i, dto := range dtos {
		users[i] = UserEntity{Name: dto.Name}
	}
	return users, nil
}
