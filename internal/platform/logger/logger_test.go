package logger

import "testing"

func TestSanitizeValueRedactsAndHashes(t *testing.T) {
	cases := []struct {
		key  string
		val  interface{}
		want interface{}
	}{
		{key: "jwt_secret", val: "abc", want: "[REDACTED]"},
		{key: "postgres_dsn", val: "host=db password=x", want: "[REDACTED]"},
		{key: "content_id", val: "c-1", want: "c-1"},
		{key: "video_url", val: "https://storage.googleapis.com/b/k.mp4?X-Goog-Signature=abc", want: "https://storage.googleapis.com/b/k.mp4?[REDACTED]"},
		{key: "video_url", val: "https://storage.googleapis.com/b/k.mp4?alt=media", want: "https://storage.googleapis.com/b/k.mp4?alt=media"},
	}
	for _, tc := range cases {
		if got := sanitizeValue(tc.key, tc.val); got != tc.want {
			t.Fatalf("sanitizeValue(%q): want=%v got=%v", tc.key, tc.want, got)
		}
	}

	hashed, ok := sanitizeValue("user_id", "u-1").(string)
	if !ok || len(hashed) != len("hash:")+12 {
		t.Fatalf("user_id: want hash:<12 hex> got=%v", hashed)
	}
	if hashed != sanitizeValue("owner_user_id", "u-1") {
		t.Fatalf("hash should be stable across keys for the same value")
	}
}
