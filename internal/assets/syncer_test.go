package assets

import (
	"context"
	"errors"
	"testing"

	"chorus/internal/logging"
	"chorus/internal/queue"
	"chorus/internal/services/contentstore"
)

type fakeContentClient struct {
	existing map[string]*contentstore.MediaAsset
	created  []contentstore.MediaAsset
	updates  []map[string]string
	findErr  error
	patchErr error
}

func (c *fakeContentClient) FindAsset(_ context.Context, fileURL, lang string) (*contentstore.MediaAsset, error) {
	if c.findErr != nil {
		return nil, c.findErr
	}
	return c.existing[fileURL+"|"+lang], nil
}

func (c *fakeContentClient) CreateAsset(_ context.Context, asset contentstore.MediaAsset) (*contentstore.MediaAsset, error) {
	asset.ID = "asset-" + asset.Generation.Language
	c.created = append(c.created, asset)
	return &asset, nil
}

func (c *fakeContentClient) UpdateContentAudio(_ context.Context, _ string, audioAssets map[string]string) error {
	if c.patchErr != nil {
		return c.patchErr
	}
	c.updates = append(c.updates, audioAssets)
	return nil
}

func syncJob() *queue.Job {
	return &queue.Job{
		ID:        1,
		ContentID: "content-9",
		AudioURLs: map[string]string{
			"en": "https://cdn.example/en.mp3",
			"es": "https://cdn.example/es.mp3",
		},
	}
}

func TestSyncCreatesAssetsAndPatchesContent(t *testing.T) {
	client := &fakeContentClient{}
	syncer := NewSyncer(client, logging.NewNop())

	if err := syncer.Sync(context.Background(), syncJob(), []string{"en", "es"}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if len(client.created) != 2 {
		t.Fatalf("created = %d assets", len(client.created))
	}
	if client.created[0].FileType != "audio" || client.created[0].MimeType != "audio/mpeg" {
		t.Errorf("asset shape = %+v", client.created[0])
	}
	if len(client.updates) != 1 {
		t.Fatalf("updates = %d", len(client.updates))
	}
	if client.updates[0]["en"] != "asset-en" || client.updates[0]["es"] != "asset-es" {
		t.Errorf("asset map = %v", client.updates[0])
	}
}

func TestSyncReusesExistingAssets(t *testing.T) {
	client := &fakeContentClient{
		existing: map[string]*contentstore.MediaAsset{
			"https://cdn.example/en.mp3|en": {ID: "asset-old"},
		},
	}
	syncer := NewSyncer(client, logging.NewNop())

	if err := syncer.Sync(context.Background(), syncJob(), []string{"en"}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(client.created) != 0 {
		t.Errorf("created = %d, want 0 for existing asset", len(client.created))
	}
	if client.updates[0]["en"] != "asset-old" {
		t.Errorf("asset map = %v", client.updates[0])
	}
}

func TestSyncSkipsWithoutContentLink(t *testing.T) {
	client := &fakeContentClient{}
	syncer := NewSyncer(client, logging.NewNop())

	job := syncJob()
	job.ContentID = ""
	if err := syncer.Sync(context.Background(), job, []string{"en"}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(client.created) != 0 || len(client.updates) != 0 {
		t.Error("sync happened for unlinked job")
	}
}

func TestSyncReportsButToleratesFailures(t *testing.T) {
	client := &fakeContentClient{findErr: errors.New("service down")}
	syncer := NewSyncer(client, logging.NewNop())

	err := syncer.Sync(context.Background(), syncJob(), []string{"en"})
	if err == nil {
		t.Fatal("Sync() error = nil, want surfaced failure")
	}
	if len(client.updates) != 0 {
		t.Error("content patched despite asset failures")
	}
}
