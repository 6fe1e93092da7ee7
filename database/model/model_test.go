package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[FileStatus][]FileStatus{
		FILE_STATUS_WAIT:        {FILE_STATUS_PROCESSING, FILE_STATUS_WAIT},
		FILE_STATUS_RETRYING:    {FILE_STATUS_PROCESSING, FILE_STATUS_WAIT},
		FILE_STATUS_PROCESSING:  {FILE_STATUS_DOWNLOADING, FILE_STATUS_SUCCESS, FILE_STATUS_FAILED},
		FILE_STATUS_DOWNLOADING: {FILE_STATUS_PROCESSING, FILE_STATUS_FAILED},
		FILE_STATUS_SUCCESS:     {FILE_STATUS_WAIT},
		FILE_STATUS_FAILED:      {FILE_STATUS_RETRYING, FILE_STATUS_WAIT},
	}
	for _, from := range AllFileStatuses {
		for _, to := range AllFileStatuses {
			expected := false
			for _, a := range allowed[from] {
				if a == to {
					expected = true
				}
			}
			assert.Equal(t, expected, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition("bogus", FILE_STATUS_WAIT))
}

func TestFileStatusHelpers(t *testing.T) {
	assert.True(t, FILE_STATUS_WAIT.IsClaimable())
	assert.True(t, FILE_STATUS_RETRYING.IsClaimable())
	assert.False(t, FILE_STATUS_FAILED.IsClaimable())
	assert.True(t, FILE_STATUS_DOWNLOADING.IsInFlight())
	assert.False(t, FILE_STATUS_SUCCESS.IsInFlight())

	st, err := ParseFileStatus(" Failed ")
	assert.NoError(t, err)
	assert.Equal(t, FILE_STATUS_FAILED, st)
	_, err = ParseFileStatus("done")
	assert.Error(t, err)
}

func TestNewFileId(t *testing.T) {
	id := NewFileId("ftp-main", "/audio/a.wav")
	assert.Len(t, id, 32)
	assert.Equal(t, id, NewFileId("ftp-main", "/audio/a.wav"))
	assert.NotEqual(t, id, NewFileId("ftp-backup", "/audio/a.wav"))
	assert.NotEqual(t, id, NewFileId("ftp-main", "/audio/b.wav"))
}

func TestNormalizeExtension(t *testing.T) {
	for in, out := range map[string]string{
		"MP3":   ".mp3",
		".WAV":  ".wav",
		" txt ": ".txt",
	} {
		got, err := NormalizeExtension(in)
		assert.NoError(t, err)
		assert.Equal(t, out, got)
	}
	for _, bad := range []string{"", ".", "a/b", "tar.gz", `x\y`} {
		_, err := NormalizeExtension(bad)
		assert.Error(t, err, bad)
	}
}

func TestExtensionPredicatesAreDisjoint(t *testing.T) {
	for _, ext := range AudioExtensions {
		assert.False(t, IsTextExtension(ext), ext)
	}
	assert.True(t, IsAudioExtension(".MP3"))
	assert.True(t, IsTextExtension(".md"))
}

func TestScanSourceWatchPath(t *testing.T) {
	ftp := ScanSource{Name: "a", Kind: SOURCE_KIND_FTP, Ftp: &FtpConfig{Host: "10.0.0.5", Port: 21, RemoteDir: "/rec"}}
	assert.Equal(t, "ftp://10.0.0.5:21/rec", ftp.WatchPath())
	assert.Equal(t, "/rec", ftp.Root())

	local := ScanSource{Name: "b", Kind: SOURCE_KIND_LOCAL, Local: &LocalConfig{Path: "/data/in"}}
	assert.Equal(t, "/data/in", local.WatchPath())
	assert.Equal(t, SOURCE_TYPE_LOCAL, SourceTypeForKind(local.Kind))
	assert.Equal(t, SOURCE_TYPE_FTP, SourceTypeForKind(ftp.Kind))
}

func TestFileRecordStem(t *testing.T) {
	r := FileRecord{FileName: "meeting.2024.wav", Processors: []string{"audio_to_text"}}
	assert.Equal(t, "meeting.2024", r.Stem())
	assert.True(t, r.HasProcessor("audio_to_text"))
	assert.False(t, r.HasProcessor("knowledge_processor"))
}
