package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clipstream/internal/domain"
)

const playerSettingsDocID = "player"

type playerSettingsDoc struct {
	ID          string  `bson:"_id"`
	Volume      float64 `bson:"volume"`
	Speed       float64 `bson:"speed"`
	LastVideoID string  `bson:"lastVideoId,omitempty"`
}

type PlayerSettingsRepository struct {
	collection *mongo.Collection
}

func NewPlayerSettingsRepository(client *mongo.Client, dbName string) *PlayerSettingsRepository {
	return &PlayerSettingsRepository{collection: client.Database(dbName).Collection("settings")}
}

func (r *PlayerSettingsRepository) Get(ctx context.Context) (domain.PlayerSettings, bool, error) {
	var doc playerSettingsDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": playerSettingsDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.PlayerSettings{}, false, nil
		}
		return domain.PlayerSettings{}, false, err
	}
	return domain.PlayerSettings{
		Volume:      doc.Volume,
		Speed:       doc.Speed,
		LastVideoID: domain.VideoID(doc.LastVideoID),
	}, true, nil
}

func (r *PlayerSettingsRepository) Set(ctx context.Context, settings domain.PlayerSettings) error {
	update := bson.M{
		"$set": bson.M{
			"volume":      settings.Volume,
			"speed":       settings.Speed,
			"lastVideoId": string(settings.LastVideoID),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": playerSettingsDocID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}
