package chatstream

import "testing"

func TestRenderCommittedReply(t *testing.T) {
	text := "**Getting started**\n\nUpload your footage and Clik does the rest.\n- Pick a **style**\n- Export"

	blocks := Render(text, false)

	wantKinds := []BlockKind{BlockHeading, BlockSpacer, BlockParagraph, BlockBullet, BlockBullet}
	if len(blocks) != len(wantKinds) {
		t.Fatalf("got %d blocks, want %d: %+v", len(blocks), len(wantKinds), blocks)
	}
	for i, kind := range wantKinds {
		if blocks[i].Kind != kind {
			t.Errorf("block %d kind = %v, want %v", i, blocks[i].Kind, kind)
		}
	}
	if got := blocks[0].Text(); got != "Getting started" {
		t.Errorf("heading text = %q, want markers stripped", got)
	}
	if got := blocks[3].Text(); got != "Pick a style" {
		t.Errorf("bullet text = %q", got)
	}
}

func TestRenderInlineBoldSpans(t *testing.T) {
	blocks := Render("Clik handles **cuts** and **captions** for you.", false)

	if len(blocks) != 1 || blocks[0].Kind != BlockParagraph {
		t.Fatalf("blocks = %+v, want one paragraph", blocks)
	}
	spans := blocks[0].Spans
	var boldText []string
	for _, s := range spans {
		if s.Bold {
			boldText = append(boldText, s.Text)
		}
	}
	if len(boldText) != 2 || boldText[0] != "cuts" || boldText[1] != "captions" {
		t.Errorf("bold spans = %v, want [cuts captions]", boldText)
	}
}

func TestRenderMultiSpanLineIsNotHeading(t *testing.T) {
	blocks := Render("**cuts** and **captions**", false)

	if blocks[0].Kind != BlockHeading {
		return
	}
	t.Errorf("line with separate bold spans classified as heading: %+v", blocks[0])
}

func TestRenderStreamingPartialLine(t *testing.T) {
	blocks := Render("**Plan**\n- first ste", true)

	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v, want heading plus partial", blocks)
	}
	if blocks[0].Kind != BlockHeading {
		t.Errorf("block 0 kind = %v, want heading", blocks[0].Kind)
	}
	last := blocks[1]
	if last.Kind != BlockPartial {
		t.Fatalf("trailing line kind = %v, want partial while streaming", last.Kind)
	}
	if got := last.Text(); got != "- first ste" {
		t.Errorf("partial text = %q, want the raw unformatted line", got)
	}
}

func TestRenderTrailingNewlineNoSpacer(t *testing.T) {
	blocks := Render("done.\n", false)

	if len(blocks) != 1 || blocks[0].Kind != BlockParagraph {
		t.Errorf("blocks = %+v, want single paragraph without trailing spacer", blocks)
	}
}

func TestRenderEmptyStreamingBuffer(t *testing.T) {
	blocks := Render("", true)

	if len(blocks) != 1 || blocks[0].Kind != BlockPartial {
		t.Errorf("blocks = %+v, want one empty partial for the cursor", blocks)
	}
}
