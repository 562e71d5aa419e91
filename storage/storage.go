package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

// Storage persists per-user dashboard settings in a table. The dashboard
// owns nothing else; every other entity is a read-only projection of the
// event store.
type Storage struct {
	settingsTable *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, settingsTable string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{settingsTable: svc.NewClient(settingsTable)}, nil
}

type settingsEntity struct {
	aztables.Entity
	APIBaseURL         string `json:"ApiBaseUrl"`
	RefreshIntervalSec int32  `json:"RefreshIntervalSec"`
	PageSize           int32  `json:"PageSize"`
	ShowPayloads       bool   `json:"ShowPayloads"`
	AutoPlay           bool   `json:"AutoPlay"`
	PlaybackIntervalMs int32  `json:"PlaybackIntervalMs"`
	Theme              string `json:"Theme"`
}

// FetchSettings retrieves the user's settings, or the defaults when the user
// has never saved any.
func (s *Storage) FetchSettings(ctx context.Context, userID string) (domain.Settings, error) {
	ent, err := s.settingsTable.GetEntity(ctx, userID, userID, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}
	return decodeSettingsEntity(ent.Value)
}

func decodeSettingsEntity(data []byte) (domain.Settings, error) {
	var raw settingsEntity
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{
		APIBaseURL:         raw.APIBaseURL,
		RefreshIntervalSec: int(raw.RefreshIntervalSec),
		PageSize:           int(raw.PageSize),
		ShowPayloads:       raw.ShowPayloads,
		AutoPlay:           raw.AutoPlay,
		PlaybackIntervalMs: int(raw.PlaybackIntervalMs),
		Theme:              raw.Theme,
	}, nil
}

// SaveSettings upserts the user's settings.
func (s *Storage) SaveSettings(ctx context.Context, userID string, settings domain.Settings) error {
	ent := settingsEntity{
		Entity: aztables.Entity{
			PartitionKey: userID,
			RowKey:       userID,
		},
		APIBaseURL:         settings.APIBaseURL,
		RefreshIntervalSec: int32(settings.RefreshIntervalSec),
		PageSize:           int32(settings.PageSize),
		ShowPayloads:       settings.ShowPayloads,
		AutoPlay:           settings.AutoPlay,
		PlaybackIntervalMs: int32(settings.PlaybackIntervalMs),
		Theme:              settings.Theme,
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.settingsTable.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}
