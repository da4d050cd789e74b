package frames

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pkt.systems/chatdeck/core"
)

// injectTemplate locates the application's composer, fills it, and
// optionally submits. The setter dance is required because the application
// framework ignores plain value assignment on controlled inputs.
const injectTemplate = `(() => {
	const text = %s;
	const submit = %t;
	const editor = document.querySelector('textarea, [contenteditable="true"]');
	if (!editor) {
		return { ok: false, error: "composer not found" };
	}
	if (editor.tagName === "TEXTAREA") {
		const setter = Object.getOwnPropertyDescriptor(window.HTMLTextAreaElement.prototype, "value").set;
		setter.call(editor, text);
	} else {
		editor.textContent = text;
	}
	editor.dispatchEvent(new InputEvent("input", { bubbles: true }));
	if (submit) {
		const button = document.querySelector('button[type="submit"], button[aria-label*="send" i]');
		if (button && !button.disabled) {
			button.click();
		} else {
			editor.dispatchEvent(new KeyboardEvent("keydown", { key: "Enter", bubbles: true }));
		}
	}
	return { ok: true };
})()`

// titleScript is the fixed title-extraction heuristic: prefer the visible
// conversation heading, fall back to the document title.
const titleScript = `(() => {
	const heading = document.querySelector("main h1, header h1");
	const title = (heading && heading.textContent) || document.title || "";
	return title.replace(/\s+/g, " ").trim();
})()`

// InjectScript renders the injection script for the given text.
func InjectScript(text string, submit bool) string {
	encoded, err := json.Marshal(text)
	if err != nil {
		// json.Marshal of a string cannot fail; keep the script valid anyway.
		encoded = []byte(`""`)
	}
	return fmt.Sprintf(injectTemplate, encoded, submit)
}

type injectResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Scripts evaluates the injection and title-extraction collaborators inside
// a resolved frame. It implements core.FrameScripts.
type Scripts struct{}

// Inject fills the frame's composer with text and optionally submits.
func (Scripts) Inject(ctx context.Context, frame core.Frame, text string, submit bool) error {
	var result injectResult
	if err := frame.Evaluate(ctx, InjectScript(text, submit), &result); err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("injection script failed: %s", result.Error)
	}
	return nil
}

// ExtractTitle reads the frame's visible title.
func (Scripts) ExtractTitle(ctx context.Context, frame core.Frame) (string, error) {
	var title string
	if err := frame.Evaluate(ctx, titleScript, &title); err != nil {
		return "", err
	}
	return strings.TrimSpace(title), nil
}
