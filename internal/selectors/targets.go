package selectors

// loc is a convenience for optional locator fields.
func loc(l Locator) *Locator { return &l }

// registry maps target IDs to their descriptors. Selector notes reflect the
// UIs as last verified; fallbacks cover older and regional variants.
var registry = map[string]TargetDescriptor{
	"claude": {
		ID:         "claude",
		Name:       "Claude",
		URL:        "https://claude.ai",
		NewChatURL: "https://claude.ai/new",
		Inputs: []Locator{
			// ProseMirror contenteditable editor
			CSS("div.ProseMirror[contenteditable='true']"),
			CSS("[contenteditable='true'].ProseMirror"),
			CSS("div[contenteditable='true']"),
			CSS("[data-placeholder*='message']"),
			CSS("fieldset [contenteditable='true']"),
		},
		Submits: []Locator{
			CSS("button[aria-label='Send Message']"),
			CSS("button[type='submit']"),
			CSS("[aria-label*='Send']"),
			CSS("button[data-testid='send-button']"),
		},
		Responses: []Locator{
			CSS("div[data-is-streaming]"),
			CSS("[data-message-author='assistant']"),
			CSS(".assistant-message"),
			CSS("[class*='response']"),
			CSS("[class*='message'][class*='assistant']"),
		},
		Stop:     loc(CSS("button[aria-label='Stop Response']")),
		Complete: loc(CSS("div[data-is-streaming='false']")),
	},

	"chatgpt": {
		ID:         "chatgpt",
		Name:       "ChatGPT",
		URL:        "https://chatgpt.com",
		NewChatURL: "https://chatgpt.com/",
		Inputs: []Locator{
			// contenteditable div, not a textarea
			CSS("div#prompt-textarea[contenteditable='true']"),
			CSS("#prompt-textarea"),
			CSS("[contenteditable='true'][data-placeholder]"),
			CSS("textarea[placeholder*='message']"),
			CSS("[contenteditable='true']"),
			Role("textbox"),
		},
		Submits: []Locator{
			CSS("button[data-testid='send-button']"),
			CSS("button[aria-label='Send prompt']"),
			CSS("button[aria-label='Send message']"),
			CSS("form button[type='submit']"),
			CSS("button.send-button"),
		},
		Responses: []Locator{
			// the markdown prose content inside the assistant turn, not the wrapper
			CSS("div[data-message-author-role='assistant'] .markdown.prose"),
			CSS("div[data-message-author-role='assistant'] .prose"),
			CSS("div[data-message-author-role='assistant'] .markdown"),
			CSS("[data-message-author-role='assistant'] div.whitespace-pre-wrap"),
			CSS(".agent-turn .markdown"),
		},
		Stop: loc(CSS("button[aria-label='Stop generating']")),
		// No reliable completion marker; completion is inferred from the
		// stop control and text stability.
		Complete: nil,
	},

	"gemini": {
		ID:         "gemini",
		Name:       "Gemini",
		URL:        "https://gemini.google.com",
		NewChatURL: "https://gemini.google.com/app",
		Inputs: []Locator{
			// custom web components wrap a contenteditable region
			CSS("rich-textarea div[contenteditable='true']"),
			CSS(".ql-editor[contenteditable='true']"),
			CSS("[aria-label*='Enter a prompt']"),
			CSS("div[contenteditable='true']"),
			CSS("rich-textarea [contenteditable='true']"),
		},
		Submits: []Locator{
			CSS("button.send-button"),
			CSS("button[aria-label='Send message']"),
			CSS("[aria-label='Submit']"),
			CSS("button[data-test-id='send-button']"),
			Text("Send"),
		},
		Responses: []Locator{
			CSS(".model-response-text .markdown-main-panel"),
			CSS(".response-content"),
			CSS("message-content .markdown"),
			CSS(".model-response-text"),
			CSS("[class*='response'] .markdown"),
			CSS(".conversation-container .model-response"),
		},
		Stop:     loc(CSS("button[aria-label='Stop responding']")),
		Complete: nil,
	},
}
