package attachments

// SlotCount is the fixed number of image positions on a project or event.
const SlotCount = 6

// Image references one stored blob and the public URL derived from its key.
type Image struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Slots holds the images of one record. A nil entry is an empty slot.
type Slots [SlotCount]*Image

// SlotsFromArrays builds Slots from positionally aligned key and URL arrays.
// Missing or empty entries become empty slots.
func SlotsFromArrays(keys, urls []string) Slots {
	var s Slots
	for i := 0; i < SlotCount && i < len(keys); i++ {
		if keys[i] == "" {
			continue
		}
		img := &Image{Key: keys[i]}
		if i < len(urls) {
			img.URL = urls[i]
		}
		s[i] = img
	}
	return s
}

// Keys returns the six keys with "" for empty slots.
func (s Slots) Keys() []string {
	out := make([]string, SlotCount)
	for i, img := range s {
		if img != nil {
			out[i] = img.Key
		}
	}
	return out
}

// URLs returns the six URLs with "" for empty slots.
func (s Slots) URLs() []string {
	out := make([]string, SlotCount)
	for i, img := range s {
		if img != nil {
			out[i] = img.URL
		}
	}
	return out
}

// NonEmptyKeys returns the keys of occupied slots in slot order.
func (s Slots) NonEmptyKeys() []string {
	var out []string
	for _, img := range s {
		if img != nil && img.Key != "" {
			out = append(out, img.Key)
		}
	}
	return out
}

// Count returns the number of occupied slots.
func (s Slots) Count() int {
	return len(s.NonEmptyKeys())
}
