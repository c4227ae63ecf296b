package user

import "firestore-service/internal/firestore/domain/model"

// OwnerInfoRequestDTO is what gets written for an owner.
type OwnerInfoRequestDTO struct {
	Name string `firestore:"name"`
}

// OwnerInfoResponseDTO is what gets read back.
type OwnerInfoResponseDTO struct {
	Name string `firestore:"name"`
}

// SaveOwnerInfo stores dto at Users/{uid}.
func SaveOwnerInfo(dto OwnerInfoRequestDTO, uid string) model.Endpoint[model.Empty] {
	return model.NewEndpoint[model.Empty](dto, model.SaveMethod(uid), UsersSaveOwnerInfo())
}

// FetchOwnerInfo reads Users/{uid}.
func FetchOwnerInfo(uid string) model.Endpoint[OwnerInfoResponseDTO] {
	return model.NewEndpoint[OwnerInfoResponseDTO](nil, model.GetMethod, UsersFetchOwnerInfo(uid))
}

// ListOwners reads every user document.
func ListOwners() model.Endpoint[OwnerInfoResponseDTO] {
	return model.NewEndpoint[OwnerInfoResponseDTO](nil, model.GetMethod, AllUsers())
}
