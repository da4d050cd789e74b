package schema

// Quick entry.

// QuickEntrySubmit carries the text of a quick-entry submission.
type QuickEntrySubmit struct {
	Text string `json:"text"`
}

// QuickEntryNavigate instructs the UI to mount a frame for a new tab.
type QuickEntryNavigate struct {
	RequestID   RequestID `json:"request_id"`
	TargetTabID TabID     `json:"target_tab_id"`
	Text        string    `json:"text"`
}

// QuickEntryReady signals that the mounted frame finished loading.
type QuickEntryReady struct {
	RequestID   RequestID `json:"request_id"`
	TargetTabID TabID     `json:"target_tab_id"`
}

// QuickEntryReceipt reports the identifiers minted for a submission.
type QuickEntryReceipt struct {
	RequestID   RequestID `json:"request_id"`
	TargetTabID TabID     `json:"target_tab_id"`
}

// Validate checks payload shape. Both identifiers must be non-empty.
func (r QuickEntryReady) Validate() error {
	if r.RequestID == "" || r.TargetTabID == "" {
		return ErrInvalidPayload
	}
	return nil
}

// Tab state.

// UpdateTitleRequest mutates one tab's title.
type UpdateTitleRequest struct {
	TabID TabID  `json:"tab_id"`
	Title string `json:"title"`
}

// CreateTabRequest materializes a new tab.
type CreateTabRequest struct {
	Activate bool `json:"activate"`
}

// CloseTabRequest removes a tab from the set.
type CloseTabRequest struct {
	TabID TabID `json:"tab_id"`
}

// ActivateTabRequest moves the active tab pointer.
type ActivateTabRequest struct {
	TabID TabID `json:"tab_id"`
}
