package ingest

import "socialingest/pkg/models"

// maxFlattenDepth bounds parent-chain walks so a malformed cycle cannot spin
const maxFlattenDepth = 16

// BuildTree assembles flat comment records into the canonical ordered
// sequence: each top-level comment directly followed by its own replies, in
// discovery order. Nesting deeper than two levels is flattened by attaching a
// reply to its nearest top-level ancestor. The output never exceeds cap and
// never contains a reply whose parent is absent; records whose parent chain
// cannot be resolved within the set are dropped.
func BuildTree(records []models.CommentRecord, cap int) []models.CommentRecord {
	if len(records) == 0 || cap <= 0 {
		return nil
	}

	byID := make(map[string]models.CommentRecord, len(records))
	for _, record := range records {
		if record.ExternalID == "" {
			continue
		}
		if _, seen := byID[record.ExternalID]; !seen {
			byID[record.ExternalID] = record
		}
	}

	var topOrder []string
	replies := make(map[string][]models.CommentRecord)

	for _, record := range records {
		if record.ExternalID == "" {
			continue
		}
		if !record.IsReply() {
			topOrder = append(topOrder, record.ExternalID)
			continue
		}
		root, ok := topLevelAncestor(record, byID)
		if !ok {
			continue
		}
		flattened := record
		if *record.ParentExternalID != root {
			parent := root
			flattened.ParentExternalID = &parent
		}
		replies[root] = append(replies[root], flattened)
	}

	out := make([]models.CommentRecord, 0, len(records))
	seen := make(map[string]bool, len(topOrder))
	for _, id := range topOrder {
		if seen[id] {
			continue
		}
		seen[id] = true
		if len(out) >= cap {
			break
		}
		out = append(out, byID[id])
		for _, reply := range replies[id] {
			if len(out) >= cap {
				return out
			}
			out = append(out, reply)
		}
	}
	return out
}

// topLevelAncestor walks a reply's parent chain up to the top-level record
func topLevelAncestor(record models.CommentRecord, byID map[string]models.CommentRecord) (string, bool) {
	current := record
	for depth := 0; depth < maxFlattenDepth; depth++ {
		parent, ok := byID[*current.ParentExternalID]
		if !ok {
			return "", false
		}
		if !parent.IsReply() {
			return parent.ExternalID, true
		}
		current = parent
	}
	return "", false
}
