package queue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nguyentantai21042004/voice-merge/internal/logger"
	"github.com/nguyentantai21042004/voice-merge/internal/preview"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func names(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestRemovePreservesOrderAndReleasesPreview(t *testing.T) {
	dir := t.TempDir()
	reg := preview.NewRegistry("/preview/", nil)
	q := New(reg, logger.Nop())

	var entries []Entry
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		e, err := q.Add(name, writeFile(t, dir, name, []byte("x")))
		if err != nil {
			t.Fatalf("Add(%s) error = %v", name, err)
		}
		entries = append(entries, e)
	}

	if err := q.Remove(entries[1].ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if diff := cmp.Diff([]string{"a.mp3", "c.mp3"}, names(q.List())); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}
	if _, err := reg.Open(entries[1].Preview.ID); !errors.Is(err, preview.ErrRevoked) {
		t.Errorf("removed entry preview still live: %v", err)
	}
	for _, e := range []Entry{entries[0], entries[2]} {
		if _, err := reg.Open(e.Preview.ID); err != nil {
			t.Errorf("preview of %s revoked: %v", e.Name, err)
		}
	}
	if reg.Live() != 2 {
		t.Errorf("Live() = %d, want 2", reg.Live())
	}

	// Not owned: the file on disk stays.
	if _, err := os.Stat(entries[1].Path); err != nil {
		t.Errorf("watched file was deleted: %v", err)
	}
}

func TestRemoveUnknown(t *testing.T) {
	q := New(preview.NewRegistry("/p/", nil), logger.Nop())
	if err := q.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() error = %v, want ErrNotFound", err)
	}
}

func TestAddOwnedDeletesOnRemove(t *testing.T) {
	dir := t.TempDir()
	q := New(preview.NewRegistry("/p/", nil), logger.Nop())

	path := writeFile(t, dir, "upload.wav", []byte("RIFF"))
	e, err := q.AddOwned("kayıt.wav", path)
	if err != nil {
		t.Fatalf("AddOwned() error = %v", err)
	}
	if e.MIMEType != "audio/wav" {
		t.Errorf("MIMEType = %q, want audio/wav", e.MIMEType)
	}

	if err := q.Remove(e.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("owned file still exists: %v", err)
	}
}

func TestPinDefersOwnedFileDeletion(t *testing.T) {
	dir := t.TempDir()
	q := New(preview.NewRegistry("/p/", nil), logger.Nop())

	path := writeFile(t, dir, "upload.mp3", []byte("ID3"))
	e, err := q.AddOwned("b.mp3", path)
	if err != nil {
		t.Fatal(err)
	}

	unpin := q.Pin()
	if err := q.Remove(e.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after Remove, want 0", q.Len())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("owned file removed while pinned: %v", err)
	}

	unpin()
	unpin()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("owned file still exists after unpin: %v", err)
	}
}

func TestNestedPins(t *testing.T) {
	dir := t.TempDir()
	q := New(preview.NewRegistry("/p/", nil), logger.Nop())

	path := writeFile(t, dir, "upload.mp3", []byte("ID3"))
	e, err := q.AddOwned("a.mp3", path)
	if err != nil {
		t.Fatal(err)
	}

	first, second := q.Pin(), q.Pin()
	_ = q.Remove(e.ID)
	first()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("owned file removed while still pinned: %v", err)
	}
	second()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("owned file still exists after last unpin: %v", err)
	}
}

func TestAddRejectsMissingAndDirectories(t *testing.T) {
	dir := t.TempDir()
	q := New(preview.NewRegistry("/p/", nil), logger.Nop())

	if _, err := q.Add("missing.mp3", filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("Add() should fail for a missing file")
	}
	if _, err := q.Add("dir", dir); err == nil {
		t.Error("Add() should fail for a directory")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	dir := t.TempDir()
	reg := preview.NewRegistry("/p/", nil)

	var lengths []int
	q := New(reg, logger.Nop())
	q.Subscribe(func(n int) { lengths = append(lengths, n) })

	upload := writeFile(t, dir, "u.mp3", []byte("x"))
	if _, err := q.AddOwned("u.mp3", upload); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Add("w.mp3", writeFile(t, dir, "w.mp3", []byte("x"))); err != nil {
		t.Fatal(err)
	}

	q.Close()

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if reg.Live() != 0 {
		t.Errorf("Live() = %d, want 0", reg.Live())
	}
	if _, err := os.Stat(upload); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("owned upload survived Close: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 0}, lengths); diff != "" {
		t.Errorf("onChange mismatch (-want +got):\n%s", diff)
	}
}

func TestMIMEType(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"mp3", "a.mp3", []byte("ID3"), "audio/mpeg"},
		{"upper case ext", "B.WAV", []byte("RIFF"), "audio/wav"},
		{"m4a", "c.m4a", []byte("x"), "audio/mp4"},
		{"sniffed", "noext", []byte("OggS\x00\x02"), "application/ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.data)
			if got := MIMEType(path); got != tt.want {
				t.Errorf("MIMEType(%s) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestIsAudioFile(t *testing.T) {
	for path, want := range map[string]bool{
		"a.mp3":      true,
		"dir/b.FLAC": true,
		"notes.txt":  false,
		"video.mp4":  false,
	} {
		if got := IsAudioFile(path); got != want {
			t.Errorf("IsAudioFile(%q) = %v, want %v", path, got, want)
		}
	}
}
