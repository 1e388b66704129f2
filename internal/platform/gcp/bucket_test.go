package gcp

import "testing"

func testBucketService() *bucketService {
	return &bucketService{
		videoBucket:    bucketConfig{name: "videos", cdnDomain: "cdn.example.com"},
		artifactBucket: bucketConfig{name: "artifacts"},
		publicBaseURL:  "http://localhost:4443",
	}
}

func TestParseObjectURL(t *testing.T) {
	bs := testBucketService()

	cases := []struct {
		raw    string
		want   ObjectRef
		wantOK bool
	}{
		{raw: "gs://artifacts/runs/r1/analysis.json", want: ObjectRef{Bucket: "artifacts", Key: "runs/r1/analysis.json"}, wantOK: true},
		{raw: "https://storage.googleapis.com/artifacts/runs/r1/manifest%20v2.json", want: ObjectRef{Bucket: "artifacts", Key: "runs/r1/manifest v2.json"}, wantOK: true},
		{raw: "https://artifacts.storage.googleapis.com/runs/r1/t.vtt?X-Goog-Signature=abc", want: ObjectRef{Bucket: "artifacts", Key: "runs/r1/t.vtt"}, wantOK: true},
		{raw: "https://cdn.example.com/content/1/source.mp4", want: ObjectRef{Bucket: "videos", Key: "content/1/source.mp4"}, wantOK: true},
		{raw: "http://localhost:4443/storage/v1/b/artifacts/o/runs%2Fr1%2Fmanifest.json?alt=media", want: ObjectRef{Bucket: "artifacts", Key: "runs/r1/manifest.json"}, wantOK: true},
		{raw: "http://localhost:4443/artifacts/runs/r1/out.json", want: ObjectRef{Bucket: "artifacts", Key: "runs/r1/out.json"}, wantOK: true},
		{raw: "https://storage.googleapis.com/someone-else/runs/r1.json"},
		{raw: "gs://artifacts/"},
		{raw: "/tmp/output/manifest.json"},
		{raw: "https://example.org/artifacts/runs/r1.json"},
		{raw: "ActionSummary"},
	}
	for _, tc := range cases {
		got, ok := bs.ParseObjectURL(tc.raw)
		if ok != tc.wantOK {
			t.Fatalf("ParseObjectURL(%q): want ok=%v got ok=%v (%v)", tc.raw, tc.wantOK, ok, got)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseObjectURL(%q): want=%v got=%v", tc.raw, tc.want, got)
		}
	}
}
