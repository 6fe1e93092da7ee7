package repository

import (
	"context"
	"testing"

	"filepipe/database"
	"filepipe/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ftpSource(name string) *model.ScanSource {
	return &model.ScanSource{
		Name:    name,
		Kind:    model.SOURCE_KIND_FTP,
		Enabled: true,
		Ftp: &model.FtpConfig{
			Host:      "10.0.0.5",
			Port:      21,
			Username:  "rec",
			Password:  "secret",
			RemoteDir: "/recordings",
		},
	}
}

func TestSourceRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, ftpSource("ftp-main")))
		src, err := repo.GetByName(ctx, "ftp-main")
		require.NoError(t, err)
		assert.Equal(t, model.SOURCE_KIND_FTP, src.Kind)
		require.NotNil(t, src.Ftp)
		assert.Equal(t, "/recordings", src.Ftp.RemoteDir)
		assert.Nil(t, src.Local)
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := repo.Create(ctx, ftpSource("ftp-main"))
		assert.ErrorIs(t, err, database.ErrAlreadyExists)
	})

	t.Run("UpdateAndToggle", func(t *testing.T) {
		src := ftpSource("ftp-main")
		src.Ftp.RemoteDir = "/calls"
		require.NoError(t, repo.Update(ctx, src))
		require.NoError(t, repo.SetEnabled(ctx, "ftp-main", false))

		got, err := repo.GetByName(ctx, "ftp-main")
		require.NoError(t, err)
		assert.Equal(t, "/calls", got.Ftp.RemoteDir)
		assert.False(t, got.Enabled)

		enabled, err := repo.List(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, enabled)
		all, err := repo.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("UnknownSource", func(t *testing.T) {
		assert.ErrorIs(t, repo.SetEnabled(ctx, "nope", true), database.ErrDoesNotExist)
		assert.ErrorIs(t, repo.Update(ctx, ftpSource("nope")), database.ErrDoesNotExist)
		_, err := repo.Delete(ctx, "nope", false)
		assert.ErrorIs(t, err, database.ErrDoesNotExist)
	})
}

func TestDeleteSource(t *testing.T) {
	db := setupTestDB(t)
	sources := NewSourceRepository(db)
	records := NewFileRecordRepository(db)
	mappings := NewMappingRepository(db)
	ctx := context.Background()

	require.NoError(t, sources.Create(ctx, ftpSource("ftp-main")))
	require.NoError(t, mappings.SaveAll(ctx, []model.KnowledgeBaseMapping{
		{ScanConfigName: "ftp-main", KnowledgeBaseId: "kb-1", Enabled: true},
	}))
	rec := newRecord("ftp-main", "/recordings/a.wav", "a.wav", ".wav")
	require.NoError(t, records.Insert(ctx, rec))

	t.Run("InUse", func(t *testing.T) {
		refs, err := sources.Delete(ctx, "ftp-main", false)
		assert.ErrorIs(t, err, ErrSourceInUse)
		assert.Equal(t, int64(1), refs)
		_, err = sources.GetByName(ctx, "ftp-main")
		assert.NoError(t, err)
	})

	t.Run("ForceTombstones", func(t *testing.T) {
		refs, err := sources.Delete(ctx, "ftp-main", true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), refs)

		got, err := records.Get(ctx, rec.FileId)
		require.NoError(t, err)
		assert.True(t, got.SourceTombstoned)

		_, err = mappings.GetBySource(ctx, "ftp-main")
		assert.ErrorIs(t, err, database.ErrDoesNotExist)
	})

	t.Run("RediscoverClearsTombstone", func(t *testing.T) {
		require.NoError(t, sources.Create(ctx, ftpSource("ftp-main")))
		outcome, err := records.Discover(ctx, newRecord("ftp-main", "/recordings/a.wav", "a.wav", ".wav"))
		require.NoError(t, err)
		assert.Equal(t, DISCOVER_CHANGED, outcome)
		got, err := records.Get(ctx, rec.FileId)
		require.NoError(t, err)
		assert.False(t, got.SourceTombstoned)
	})
}

func TestMappingRepository(t *testing.T) {
	db := setupTestDB(t)
	sources := NewSourceRepository(db)
	repo := NewMappingRepository(db)
	ctx := context.Background()
	require.NoError(t, sources.Create(ctx, ftpSource("a")))
	require.NoError(t, sources.Create(ctx, ftpSource("b")))

	t.Run("SaveAll", func(t *testing.T) {
		err := repo.SaveAll(ctx, []model.KnowledgeBaseMapping{
			{ScanConfigName: "a", KnowledgeBaseId: "kb-a", KnowledgeBaseName: "Calls", Enabled: true},
			{ScanConfigName: "b", KnowledgeBaseId: "kb-b", Enabled: false},
		})
		require.NoError(t, err)
		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Calls", list[0].KnowledgeBaseName)
		assert.False(t, list[1].Enabled)
	})

	t.Run("UnknownSourceWritesNothing", func(t *testing.T) {
		a, err := repo.GetBySource(ctx, "a")
		require.NoError(t, err)
		a.KnowledgeBaseId = "kb-changed"
		err = repo.SaveAll(ctx, []model.KnowledgeBaseMapping{
			*a,
			{ScanConfigName: "ghost", KnowledgeBaseId: "kb-x"},
		})
		assert.ErrorIs(t, err, database.ErrDoesNotExist)

		a, err = repo.GetBySource(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "kb-a", a.KnowledgeBaseId)
	})

	t.Run("DuplicateSource", func(t *testing.T) {
		err := repo.SaveAll(ctx, []model.KnowledgeBaseMapping{{ScanConfigName: "a", KnowledgeBaseId: "kb-2"}})
		assert.ErrorIs(t, err, database.ErrAlreadyExists)
	})

	t.Run("Delete", func(t *testing.T) {
		b, err := repo.GetBySource(ctx, "b")
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, b.Id))
		assert.ErrorIs(t, repo.Delete(ctx, b.Id), database.ErrDoesNotExist)
	})
}

func TestFileTypeRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFileTypeRepository(db)
	ctx := context.Background()

	t.Run("Seeded", func(t *testing.T) {
		rules, err := repo.List(ctx, true)
		require.NoError(t, err)
		assert.Len(t, rules, len(model.DEFAULT_FILE_TYPES))
	})

	t.Run("Lifecycle", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &model.FileTypeRule{Extension: ".ogg", Description: "Ogg", Enabled: true}))
		assert.ErrorIs(t, repo.Create(ctx, &model.FileTypeRule{Extension: ".ogg"}), database.ErrAlreadyExists)

		require.NoError(t, repo.SetEnabled(ctx, ".ogg", false))
		require.NoError(t, repo.UpdateDescription(ctx, ".ogg", "Ogg Vorbis"))
		rule, err := repo.Get(ctx, ".ogg")
		require.NoError(t, err)
		assert.False(t, rule.Enabled)
		assert.Equal(t, "Ogg Vorbis", rule.Description)

		require.NoError(t, repo.Delete(ctx, ".ogg"))
		_, err = repo.Get(ctx, ".ogg")
		assert.ErrorIs(t, err, database.ErrDoesNotExist)
		assert.ErrorIs(t, repo.Delete(ctx, ".ogg"), database.ErrDoesNotExist)
	})
}
