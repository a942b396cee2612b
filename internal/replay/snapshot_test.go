package replay

import "testing"

func TestEncodeSnapshotMasksSensitiveAttribute(t *testing.T) {
	t.Parallel()
	root := SourceNode{
		Type:       "element",
		TagName:    "div",
		Attributes: map[string]string{"data-token": "abc123", "id": "root"},
	}
	out := EncodeSnapshot(root)
	if out.Attributes["data-token"] != MaskedAttr {
		t.Fatalf("data-token = %q, want %q", out.Attributes["data-token"], MaskedAttr)
	}
	if out.Attributes["id"] != "root" {
		t.Fatalf("id = %q, want unmasked", out.Attributes["id"])
	}
}

func TestEncodeSnapshotMasksPasswordInputSubtree(t *testing.T) {
	t.Parallel()
	root := SourceNode{
		Type:    "element",
		TagName: "input",
		Attributes: map[string]string{
			"type":  "password",
			"value": "hunter2",
		},
		Children: []SourceNode{{Type: "text", TextContent: "hunter2"}},
	}
	out := EncodeSnapshot(root)
	if out.TextContent != MaskedSubtree {
		t.Fatalf("textContent = %q, want %q", out.TextContent, MaskedSubtree)
	}
	if len(out.Children) != 0 {
		t.Fatalf("children = %v, want none (subtree replaced)", out.Children)
	}
	if out.Attributes != nil {
		t.Fatalf("attributes = %v, want nil for masked subtree", out.Attributes)
	}
}

func TestEncodeSnapshotMasksByClassName(t *testing.T) {
	t.Parallel()
	root := SourceNode{
		Type:    "element",
		TagName: "div",
		Classes: []string{"credit-card"},
		Children: []SourceNode{
			{Type: "text", TextContent: "4111 1111 1111 1111"},
		},
	}
	out := EncodeSnapshot(root)
	if out.TextContent != MaskedSubtree || len(out.Children) != 0 {
		t.Fatalf("got %+v, want masked subtree", out)
	}
}

func TestEncodeSnapshotChildCountMatchesSourceWhenUnmasked(t *testing.T) {
	t.Parallel()
	root := SourceNode{
		Type:    "element",
		TagName: "ul",
		Children: []SourceNode{
			{Type: "element", TagName: "li", Children: []SourceNode{{Type: "text", TextContent: "a"}}},
			{Type: "element", TagName: "li", Children: []SourceNode{{Type: "text", TextContent: "b"}}},
		},
	}
	out := EncodeSnapshot(root)
	if got := ElementChildCount(out); got != 2 {
		t.Fatalf("ElementChildCount = %d, want 2", got)
	}
}
