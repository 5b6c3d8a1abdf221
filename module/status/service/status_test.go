package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	statusmodel "chatwire/module/status/model"
	"chatwire/tools/errs"
)

// Validation rejects before any storage access, so these run without Mongo.

func TestCreateRejectsUnknownMediaType(t *testing.T) {
	_, err := Create(context.Background(), primitive.NewObjectID(), "audio", "http://x/y.mp3", "")
	require.ErrorIs(t, err, errs.ErrArgs)
}

func TestCreateRejectsTextWithoutCaption(t *testing.T) {
	_, err := Create(context.Background(), primitive.NewObjectID(), statusmodel.MediaText, "", "")
	require.ErrorIs(t, err, errs.ErrArgs)
}

func TestCreateRejectsMediaWithoutURL(t *testing.T) {
	for _, mt := range []string{statusmodel.MediaImage, statusmodel.MediaVideo} {
		_, err := Create(context.Background(), primitive.NewObjectID(), mt, "", "caption")
		require.ErrorIs(t, err, errs.ErrArgs)
	}
}

func TestCreateRejectsLongCaption(t *testing.T) {
	long := strings.Repeat("a", captionMax+1)
	_, err := Create(context.Background(), primitive.NewObjectID(), statusmodel.MediaText, "", long)
	require.ErrorIs(t, err, errs.ErrArgs)
}
