package extract

import "testing"

func TestSegmentMarkdownNestedHeadings(t *testing.T) {
	segs := SegmentMarkdown("# A\nfoo\n## B\nbar", "doc.md")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].SectionPath != "A" || segs[0].Text != "foo" {
		t.Errorf("segment 0 = %+v", segs[0])
	}
	if segs[1].SectionPath != "A > B" || segs[1].Text != "bar" {
		t.Errorf("segment 1 = %+v", segs[1])
	}
	for i, s := range segs {
		if s.Source != "doc.md" {
			t.Errorf("segment %d source = %q", i, s.Source)
		}
	}
}

func TestSegmentMarkdownNoHeadings(t *testing.T) {
	segs := SegmentMarkdown("just some text\nover two lines", "plain.md")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].SectionPath != "" {
		t.Errorf("SectionPath = %q, want empty", segs[0].SectionPath)
	}
}

func TestSegmentMarkdownBlank(t *testing.T) {
	if segs := SegmentMarkdown("  \n\n\t", "empty.md"); len(segs) != 0 {
		t.Errorf("blank document should yield zero segments, got %d", len(segs))
	}
}

func TestSegmentMarkdownHeadingWithoutBody(t *testing.T) {
	// "# A" directly followed by "## B" must not emit an empty segment for A.
	segs := SegmentMarkdown("# A\n## B\nbody", "doc.md")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].SectionPath != "A > B" {
		t.Errorf("SectionPath = %q", segs[0].SectionPath)
	}
}

func TestSegmentMarkdownLevelSkip(t *testing.T) {
	// Jumping from # to ### keeps the existing stack and appends.
	segs := SegmentMarkdown("# A\nx\n### C\ny", "doc.md")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[1].SectionPath != "A > C" {
		t.Errorf("SectionPath = %q", segs[1].SectionPath)
	}
}

func TestSegmentMarkdownSiblingResetsStack(t *testing.T) {
	segs := SegmentMarkdown("# A\na\n## B\nb\n# C\nc", "doc.md")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[2].SectionPath != "C" {
		t.Errorf("SectionPath = %q, want C", segs[2].SectionPath)
	}
}
