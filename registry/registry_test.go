package registry

import (
	"context"
	"testing"

	"filepipe/database"
	"filepipe/database/model"
	"filepipe/database/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupRegistry(t *testing.T) (*Registry, *database.DB) {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Init(context.Background()))
	t.Cleanup(func() { db.Close(context.Background()) })
	return New(db), db
}

func TestAddSource(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	t.Run("FtpDefaults", func(t *testing.T) {
		src := &model.ScanSource{Name: "ftp-main", Kind: model.SOURCE_KIND_FTP, Enabled: true, Ftp: &model.FtpConfig{Host: " 10.0.0.5 "}}
		require.NoError(t, reg.AddSource(ctx, src))
		got, err := reg.GetSource(ctx, "ftp-main")
		require.NoError(t, err)
		assert.Equal(t, 21, got.Ftp.Port)
		assert.Equal(t, "/", got.Ftp.RemoteDir)
		assert.Equal(t, "10.0.0.5", got.Ftp.Host)
	})

	t.Run("Duplicate", func(t *testing.T) {
		src := &model.ScanSource{Name: "ftp-main", Kind: model.SOURCE_KIND_FTP, Ftp: &model.FtpConfig{Host: "h"}}
		err := reg.AddSource(ctx, src)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := map[string]*model.ScanSource{
			"EmptyName":    {Name: "", Kind: model.SOURCE_KIND_LOCAL, Local: &model.LocalConfig{Path: "/tmp"}},
			"BadName":      {Name: "a b", Kind: model.SOURCE_KIND_LOCAL, Local: &model.LocalConfig{Path: "/tmp"}},
			"UnknownKind":  {Name: "x", Kind: "s3"},
			"NoPath":       {Name: "x", Kind: model.SOURCE_KIND_LOCAL, Local: &model.LocalConfig{}},
			"NoHost":       {Name: "x", Kind: model.SOURCE_KIND_FTP, Ftp: &model.FtpConfig{}},
			"BadPort":      {Name: "x", Kind: model.SOURCE_KIND_FTP, Ftp: &model.FtpConfig{Host: "h", Port: 70000}},
			"RelativeDir":  {Name: "x", Kind: model.SOURCE_KIND_FTP, Ftp: &model.FtpConfig{Host: "h", RemoteDir: "rec"}},
			"MixedConfigs": {Name: "x", Kind: model.SOURCE_KIND_FTP, Ftp: &model.FtpConfig{Host: "h"}, Local: &model.LocalConfig{Path: "/"}},
		}
		for name, src := range cases {
			t.Run(name, func(t *testing.T) {
				assert.ErrorIs(t, reg.AddSource(ctx, src), ErrValidation)
			})
		}
		sources, err := reg.ListSources(ctx, false)
		require.NoError(t, err)
		assert.Len(t, sources, 1)
	})

	t.Run("LocalPathIsAbsolute", func(t *testing.T) {
		src := &model.ScanSource{Name: "docs", Kind: model.SOURCE_KIND_LOCAL, Local: &model.LocalConfig{Path: "relative/dir"}}
		require.NoError(t, reg.AddSource(ctx, src))
		assert.True(t, len(src.Local.Path) > 0 && src.Local.Path[0] == '/')
	})
}

func TestDeleteSource(t *testing.T) {
	reg, db := setupRegistry(t)
	ctx := context.Background()
	records := repository.NewFileRecordRepository(db)

	require.NoError(t, reg.AddSource(ctx, &model.ScanSource{Name: "src", Kind: model.SOURCE_KIND_FTP, Ftp: &model.FtpConfig{Host: "h"}}))
	rec := &model.FileRecord{
		FileId: model.NewFileId("src", "/a.wav"), FileName: "a.wav", Path: "/a.wav",
		SourceType: model.SOURCE_TYPE_FTP, SourceId: "src", FileType: ".wav",
	}
	require.NoError(t, records.Insert(ctx, rec))

	refs, err := reg.DeleteSource(ctx, "src", false)
	assert.ErrorIs(t, err, repository.ErrSourceInUse)
	assert.Equal(t, int64(1), refs)

	refs, err = reg.DeleteSource(ctx, "src", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs)
	_, err = reg.GetSource(ctx, "src")
	assert.ErrorIs(t, err, database.ErrDoesNotExist)
}

func TestFileTypes(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	rule, err := reg.AddFileType(ctx, "OGG", " Ogg audio ", true)
	require.NoError(t, err)
	assert.Equal(t, ".ogg", rule.Extension)
	assert.Equal(t, "Ogg audio", rule.Description)

	_, err = reg.AddFileType(ctx, ".ogg", "", true)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = reg.AddFileType(ctx, "", "", true)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = reg.AddFileType(ctx, "a/b", "", true)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, reg.SetFileTypeEnabled(ctx, "Ogg", false))
	enabled, err := reg.ListFileTypes(ctx, true)
	require.NoError(t, err)
	for _, r := range enabled {
		assert.NotEqual(t, ".ogg", r.Extension)
	}
	require.NoError(t, reg.UpdateFileType(ctx, "ogg", "Vorbis"))
	require.NoError(t, reg.RemoveFileType(ctx, "ogg"))
	assert.ErrorIs(t, reg.RemoveFileType(ctx, "ogg"), database.ErrDoesNotExist)
}

func TestSaveMappings(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b"} {
		require.NoError(t, reg.AddSource(ctx, &model.ScanSource{Name: name, Kind: model.SOURCE_KIND_FTP, Ftp: &model.FtpConfig{Host: "h"}}))
	}

	t.Run("DuplicateInBatchWritesNothing", func(t *testing.T) {
		err := reg.SaveMappings(ctx, []model.KnowledgeBaseMapping{
			{ScanConfigName: "a", KnowledgeBaseId: "kb1", Enabled: true},
			{ScanConfigName: "a", KnowledgeBaseId: "kb2", Enabled: true},
		})
		assert.ErrorIs(t, err, ErrValidation)
		list, err := reg.ListMappings(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("UnknownSourceWritesNothing", func(t *testing.T) {
		err := reg.SaveMappings(ctx, []model.KnowledgeBaseMapping{
			{ScanConfigName: "a", KnowledgeBaseId: "kb1", Enabled: true},
			{ScanConfigName: "ghost", KnowledgeBaseId: "kb2", Enabled: true},
		})
		assert.ErrorIs(t, err, ErrValidation)
		list, err := reg.ListMappings(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("MissingKnowledgeBase", func(t *testing.T) {
		err := reg.SaveMappings(ctx, []model.KnowledgeBaseMapping{{ScanConfigName: "a"}})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Save", func(t *testing.T) {
		err := reg.SaveMappings(ctx, []model.KnowledgeBaseMapping{
			{ScanConfigName: "a", KnowledgeBaseId: "kb1", Enabled: true},
			{ScanConfigName: "b", KnowledgeBaseId: "kb2", Enabled: false},
		})
		require.NoError(t, err)

		m, err := reg.GetMappingForSource(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "kb1", m.KnowledgeBaseId)

		_, err = reg.GetMappingForSource(ctx, "b")
		assert.ErrorIs(t, err, database.ErrDoesNotExist)
	})

	t.Run("AlreadyMapped", func(t *testing.T) {
		err := reg.SaveMappings(ctx, []model.KnowledgeBaseMapping{{ScanConfigName: "a", KnowledgeBaseId: "kb9"}})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Delete", func(t *testing.T) {
		m, err := reg.GetMappingForSource(ctx, "a")
		require.NoError(t, err)
		require.NoError(t, reg.DeleteMapping(ctx, m.Id))
		_, err = reg.GetMappingForSource(ctx, "a")
		assert.ErrorIs(t, err, database.ErrDoesNotExist)
	})
}
