package vtt

import (
	"strings"
	"testing"
)

func TestParseDropsTimingsAndIdentifiers(t *testing.T) {
	input := strings.Join([]string{
		"WEBVTT",
		"",
		"1",
		"00:00:00.000 --> 00:00:02.500",
		"Hello and welcome.",
		"",
		"2",
		"00:00:02.500 --> 00:00:05.000",
		"Today we talk about graphs.",
		"",
	}, "\n")

	got := string(Parse([]byte(input)))
	want := "Hello and welcome.\nToday we talk about graphs.\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseStripsVoiceTagsAndNotes(t *testing.T) {
	input := strings.Join([]string{
		"WEBVTT",
		"",
		"NOTE",
		"This comment block must not leak into the transcript.",
		"",
		"00:00:00.000 --> 00:00:02.000",
		"<v Alice>Good morning.</v>",
		"",
	}, "\n")

	got := string(Parse([]byte(input)))
	if got != "Good morning.\n" {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, "comment block") {
		t.Fatalf("NOTE block leaked: %q", got)
	}
}

func TestParseCollapsesRollingCaptions(t *testing.T) {
	input := strings.Join([]string{
		"WEBVTT",
		"",
		"00:00:00.000 --> 00:00:01.000",
		"The quick brown fox",
		"",
		"00:00:01.000 --> 00:00:02.000",
		"The quick brown fox",
		"jumps over the lazy dog",
		"",
	}, "\n")

	got := string(Parse([]byte(input)))
	want := "The quick brown fox\njumps over the lazy dog\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseEmptyInput(t *testing.T) {
	if got := Parse(nil); len(got) != 0 {
		t.Fatalf("expected empty output, got %q", got)
	}
}
