package entity

import (
	"fmt"
	"strconv"
)

const BodyExtension = ".md"

// BodySlots holds the two content pointers of an item.
// Published names the body readers see, Draft the body being edited.
type BodySlots struct {
	Published *string `gorm:"column:published"`
	Draft     *string `gorm:"column:draft"`
}

// SaveDraft returns the slots after a draft save. An existing draft pointer is
// kept so iterative edits keep overwriting one blob. fresh is only used when
// no draft exists yet.
func (b BodySlots) SaveDraft(fresh string) (BodySlots, string) {
	if b.Draft != nil {
		return b, *b.Draft
	}
	return BodySlots{Published: b.Published, Draft: &fresh}, fresh
}

// Publish moves the draft into the published slot and clears the draft.
// ok is false when there is no draft to publish.
func (b BodySlots) Publish() (next BodySlots, ok bool) {
	if b.Draft == nil {
		return b, false
	}
	ref := *b.Draft
	return BodySlots{Published: &ref}, true
}

// Replace installs a new published pointer and drops any pending draft.
func (b BodySlots) Replace(fresh string) BodySlots {
	return BodySlots{Published: &fresh}
}

// Current is the pointer a reader of the item resolves to.
// Owners looking at a never published draft resolve to the draft.
func (b BodySlots) Current() (string, bool) {
	if b.Published != nil {
		return *b.Published, true
	}
	if b.Draft != nil {
		return *b.Draft, true
	}
	return "", false
}

func BlobName(itemID int64, ref string) string {
	return fmt.Sprintf("%s/%s%s", strconv.FormatInt(itemID, 10), ref, BodyExtension)
}

// BlobPrefix is the prefix shared by every body version of an item.
func BlobPrefix(itemID int64) string {
	return strconv.FormatInt(itemID, 10) + "/"
}
