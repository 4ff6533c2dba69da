package feed

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/ppiankov/chancache/internal/telegram"
)

func samplePosts() []telegram.Post {
	return []telegram.Post{
		{
			ID:       "abakan_mebel/412",
			Date:     "2024-05-11T09:30:00+00:00",
			Text:     "Новая коллекция\nуже в салоне",
			PhotoURL: "https://cdn.example.org/photo412.jpg",
			Views:    1800,
		},
		{
			ID:       "abakan_mebel/411",
			Date:     "2024-05-10T09:30:00+00:00",
			Text:     "",
			VideoURL: "https://cdn.example.org/clip.mp4",
		},
	}
}

func TestBuild_RoundTrip(t *testing.T) {
	f := Build("@abakan_mebel", "https://t.me/s/abakan_mebel", samplePosts())

	atom, err := ToAtom(f)
	if err != nil {
		t.Fatalf("ToAtom: %v", err)
	}

	parsed, err := gofeed.NewParser().ParseString(atom)
	if err != nil {
		t.Fatalf("generated feed does not parse: %v", err)
	}

	if parsed.Title != "@abakan_mebel" {
		t.Errorf("title = %q", parsed.Title)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(parsed.Items))
	}

	first := parsed.Items[0]
	if first.Title != "Новая коллекция" {
		t.Errorf("item title = %q, want first text line", first.Title)
	}
	if first.Link != "https://t.me/abakan_mebel/412" {
		t.Errorf("item link = %q", first.Link)
	}
	if first.PublishedParsed == nil {
		t.Error("item published time not parsed")
	}
	if !strings.Contains(first.Description, "photo412.jpg") {
		t.Errorf("description %q should mention the photo", first.Description)
	}
}

func TestBuild_MediaOnlyTitle(t *testing.T) {
	f := Build("t", "https://t.me/s/c", samplePosts()[1:])

	if got := f.Items[0].Title; got != "[video] abakan_mebel/411" {
		t.Errorf("title = %q, want media marker", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	f := Build("t", "https://t.me/s/c", nil)
	atom, err := ToAtom(f)
	if err != nil {
		t.Fatalf("ToAtom: %v", err)
	}
	if !strings.Contains(atom, "<feed") {
		t.Errorf("empty feed should still render a document")
	}
}

func TestItemTitle_Clipped(t *testing.T) {
	long := strings.Repeat("д", 200)
	p := telegram.Post{ID: "c/1", Text: long}
	title := itemTitle(p)
	if runes := []rune(title); len(runes) != snippetLen {
		t.Errorf("title length = %d runes, want %d", len(runes), snippetLen)
	}
}
