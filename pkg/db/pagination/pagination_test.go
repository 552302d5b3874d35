package pagination

import "testing"

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T03:04:05Z"})
	if err != nil {
		t.Fatalf("encode cursor: %v", err)
	}

	cursor, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	if cursor.ID != "42" {
		t.Fatalf("expected id 42, got %q", cursor.ID)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "   ", "%%%", "bm90IGpzb24"} {
		if _, err := DecodeCursor(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

func TestBuildCursorPageInfo(t *testing.T) {
	items := []int{1, 2, 3, 4}

	info := BuildCursorPageInfo(items, 3, func(v int) string { return "tok" })
	if !info.HasMore || info.NextPageToken != "tok" {
		t.Fatalf("expected continuation, got %+v", info)
	}

	info = BuildCursorPageInfo(items, 4, func(v int) string { return "tok" })
	if info.HasMore {
		t.Fatalf("expected final page, got %+v", info)
	}
}
