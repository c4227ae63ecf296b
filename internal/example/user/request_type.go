// Package user is a small application built on the Firestore service: it
// stores the display name of the signed-in owner under Users/{uid}.
package user

import "firestore-service/internal/firestore/domain/model"

// UsersCollection holds one document per user, keyed by UID.
const UsersCollection = "Users"

type usersRequest int

const (
	saveOwnerInfo usersRequest = iota
	fetchOwnerInfo
	allUsers
)

// RequestType names the location an endpoint works on. The zero value
// addresses the whole Users collection.
type RequestType struct {
	request usersRequest
	uid     string
}

// UsersSaveOwnerInfo addresses the Users collection for writing; saves name
// the document through model.SaveMethod.
func UsersSaveOwnerInfo() RequestType {
	return RequestType{request: saveOwnerInfo}
}

// UsersFetchOwnerInfo addresses the owner document of uid for reading.
func UsersFetchOwnerInfo(uid string) RequestType {
	return RequestType{request: fetchOwnerInfo, uid: uid}
}

// AllUsers addresses the Users collection.
func AllUsers() RequestType {
	return RequestType{request: allUsers}
}

func (r RequestType) CollectionRef() model.CollectionRef {
	return model.Collection(UsersCollection)
}

// DocumentRef reports no document for collection requests and for UIDs that
// are not valid document IDs.
func (r RequestType) DocumentRef() (model.DocumentRef, bool) {
	switch r.request {
	case fetchOwnerInfo:
		ref, err := r.CollectionRef().NewDocumentRef(r.uid)
		if err != nil {
			return model.DocumentRef{}, false
		}
		return ref, true
	default:
		return model.DocumentRef{}, false
	}
}
