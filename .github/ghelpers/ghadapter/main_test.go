package main

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"Flat",
			`{"percent":12.5,"status":"diff: 12.50%"}`,
			"percent=12.5\nstatus=diff: 12.50%\n",
		},
		{
			"Nested",
			`{"offset":{"x":30,"y":40},"diffPath":"/tmp/a.png"}`,
			"diffPath=/tmp/a.png\noffset_x=30\noffset_y=40\n",
		},
		{
			"Array",
			`[{"url":"https://example.com","screenshotPath":"/tmp/b.png"}]`,
			"0_screenshotPath=/tmp/b.png\n0_url=https://example.com\n",
		},
		{
			"LargeInteger",
			`{"totalPixels":9437184,"rectangles":null}`,
			"rectangles=\ntotalPixels=9437184\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buffer bytes.Buffer
			if err := write(&buffer, []byte(tt.in)); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, buffer.String()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()

		if err := write(&bytes.Buffer{}, []byte("not json")); err == nil {
			t.Error("Expected an error")
		}
	})
}
