package usecase_test

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestore-service/internal/firestore/adapter/persistence/memory"
	"firestore-service/internal/firestore/domain/model"
	"firestore-service/internal/firestore/usecase"
	ferrors "firestore-service/internal/shared/errors"
)

type Profile struct {
	Name     string            `firestore:"name"`
	Score    float64           `firestore:"score"`
	Visits   int64             `firestore:"visits"`
	Tags     []string          `firestore:"tags"`
	Active   bool              `firestore:"active"`
	Joined   time.Time         `firestore:"joined"`
	Settings map[string]string `firestore:"settings"`
}

func TestRoundTripThroughService(t *testing.T) {
	store := memory.NewStore()
	s := newService(store)
	ctx := context.Background()
	profiles := model.Collection("Profiles")
	n := 0

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("fetch(save(v)) == v", prop.ForAll(
		func(name string, score float64, visits int64, tags []string, active bool, unix int64, key, value string) bool {
			n++
			id := fmt.Sprintf("p%d", n)
			in := Profile{
				Name:     name,
				Score:    score,
				Visits:   visits,
				Tags:     tags,
				Active:   active,
				Joined:   time.Unix(unix, 0).UTC(),
				Settings: map[string]string{"k" + key: value},
			}
			save := model.NewEndpoint[model.Empty](in, model.SaveMethod(id), model.CollectionTarget(profiles))
			if _, err := s.SaveDocument(ctx, save).Await(ctx); err != nil {
				return false
			}
			out, err := usecase.Request(ctx, s, model.NewEndpoint[Profile](nil, model.GetMethod, model.DocumentTarget(profiles.Doc(id)))).Await(ctx)
			if err != nil {
				return false
			}
			if len(in.Tags) == 0 && len(out.Tags) == 0 {
				out.Tags = in.Tags
			}
			return reflect.DeepEqual(in, out)
		},
		gen.AlphaString(),
		gen.Float64Range(-1e6, 1e6),
		gen.Int64(),
		gen.SliceOf(gen.AlphaString()),
		gen.Bool(),
		gen.Int64Range(0, 4102444800),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestDecodeDocuments(t *testing.T) {
	docs := []*model.Document{
		{Ref: owners.Doc("a"), Exists: true, Data: map[string]interface{}{"name": "A", "age": 1}},
		{Ref: owners.Doc("b"), Exists: true, Data: map[string]interface{}{"name": "B"}},
	}
	out, err := usecase.DecodeDocuments[Owner](docs)
	require.NoError(t, err)
	assert.Equal(t, []Owner{{Name: "A", Age: 1}, {Name: "B"}}, out)

	docs = append(docs, &model.Document{Ref: owners.Doc("c")})
	_, err = usecase.DecodeDocuments[Owner](docs)
	var svcErr *ferrors.FirestoreServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ferrors.KindDecodingError, svcErr.Kind)
	assert.Equal(t, "Owners/c", svcErr.Details["document"])
}
