package chat

// AttachedHistory computes the context window for a completion request
// targeting the last item. See AttachedHistoryAt.
func AttachedHistory(items []*Item, itemNum int) []Message {
	return AttachedHistoryAt(items, itemNum, len(items)-1)
}

// AttachedHistoryAt returns the messages attached as context for a request
// pivoting on items[targetIndex], ending with the target's own message.
//
// itemNum bounds how many attachable items (visible messages) may precede
// the target: 0 attaches nothing but the target, any negative value attaches
// the entire prefix. Separators cut the window: only items after the last
// separator inside the window survive. Hidden messages and separators never
// appear in the result.
func AttachedHistoryAt(items []*Item, itemNum, targetIndex int) []Message {
	if targetIndex < 0 || targetIndex >= len(items) {
		return nil
	}
	target := items[targetIndex]
	if target.Kind != KindMessage {
		return nil
	}
	if itemNum == 0 {
		return []Message{target.Message()}
	}

	previous := items[:targetIndex]
	window := previous
	if itemNum > 0 {
		count := 0
		start := 0
		for i := len(previous) - 1; i >= 0; i-- {
			if previous[i].Attachable() {
				count++
				if count == itemNum {
					start = i
					break
				}
			}
		}
		window = previous[start:]
	}

	// A separator starts a new thread: drop everything at or before the
	// last one inside the window.
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Kind == KindSeparator {
			window = window[i+1:]
			break
		}
	}

	out := make([]Message, 0, len(window)+1)
	for _, it := range window {
		if it.Attachable() {
			out = append(out, it.Message())
		}
	}
	return append(out, target.Message())
}
