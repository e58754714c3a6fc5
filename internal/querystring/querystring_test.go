package querystring

import (
	"testing"
)

func TestValues_TaggedFields(t *testing.T) {
	opts := struct {
		Type   string `url:"type"`
		Sort   string `url:"sort"`
		Start  int    `url:"X-Plex-Container-Start"`
		Hidden string
		Skip   string `url:"-"`
	}{
		Type:   "4",
		Sort:   "addedAt:desc",
		Start:  0,
		Hidden: "ignored",
		Skip:   "ignored",
	}

	values, err := Values(opts)
	if err != nil {
		t.Fatalf("Values() error: %v", err)
	}

	if got := values.Get("type"); got != "4" {
		t.Errorf("type = %q, want 4", got)
	}
	if got := values.Get("sort"); got != "addedAt:desc" {
		t.Errorf("sort = %q, want addedAt:desc", got)
	}
	if got := values.Get("X-Plex-Container-Start"); got != "0" {
		t.Errorf("X-Plex-Container-Start = %q, want 0 even though zero", got)
	}
	if len(values) != 3 {
		t.Errorf("encoded %d keys, want 3: %v", len(values), values)
	}
}

func TestValues_Omitempty(t *testing.T) {
	opts := struct {
		Title string `url:"title,omitempty"`
		Limit int    `url:"limit,omitempty"`
	}{}

	values, err := Values(&opts)
	if err != nil {
		t.Fatalf("Values() error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("encoded %d keys from zero struct, want 0: %v", len(values), values)
	}
}

func TestValues_Slice(t *testing.T) {
	opts := struct {
		IDs []int `url:"id"`
	}{IDs: []int{1, 2, 3}}

	values, err := Values(opts)
	if err != nil {
		t.Fatalf("Values() error: %v", err)
	}
	if got := len(values["id"]); got != 3 {
		t.Errorf("id has %d entries, want 3: %v", got, values["id"])
	}
}

func TestValues_RejectsNonStruct(t *testing.T) {
	if _, err := Values("not a struct"); err == nil {
		t.Error("Values(string) = nil, want error")
	}
}
