package resolve

import "fmt"

// item is one extraction after shape normalization but before field
// validation.
type item struct {
	Class      string
	Text       string
	Attributes map[string]any
}

// normalize accepts the three response shapes spec.md §4.5 names:
//
//  1. a flat array of extraction objects
//  2. an object with an "extractions" array
//  3. a class-keyed map, each key's value a list of strings or objects
//
// and reduces all three to a flat []item.
func normalize(v any) ([]item, error) {
	switch val := v.(type) {
	case []any:
		return itemsFromArray(val)
	case map[string]any:
		if wrapped, ok := val["extractions"]; ok {
			arr, ok := wrapped.([]any)
			if !ok {
				return nil, fmt.Errorf("resolve: \"extractions\" is not an array")
			}
			return itemsFromArray(arr)
		}
		return itemsFromClassMap(val)
	default:
		return nil, fmt.Errorf("resolve: unrecognized JSON shape %T", v)
	}
}

func itemsFromArray(arr []any) ([]item, error) {
	items := make([]item, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, itemFromObject(obj))
	}
	return items, nil
}

// itemsFromClassMap handles {"Person": ["Alice", {"text": "Bob", "attributes": {...}}], ...}:
// each top-level key is an extraction class, its value a list of
// either plain strings (the extraction text, no attributes) or
// objects.
func itemsFromClassMap(m map[string]any) ([]item, error) {
	var items []item
	for class, v := range m {
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		for _, el := range arr {
			switch e := el.(type) {
			case string:
				items = append(items, item{Class: class, Text: e})
			case map[string]any:
				it := itemFromObject(e)
				if it.Class == "" {
					it.Class = class
				}
				items = append(items, it)
			}
		}
	}
	return items, nil
}

// itemFromObject reads class/text under either this module's field
// names or the extraction_class/extraction_text convention the
// prompt's own schema uses, and treats every other key as an
// attribute.
func itemFromObject(obj map[string]any) item {
	it := item{Attributes: map[string]any{}}
	for k, v := range obj {
		switch k {
		case "class", "extraction_class":
			it.Class, _ = v.(string)
		case "text", "extraction_text":
			it.Text, _ = v.(string)
		case "attributes":
			if attrs, ok := v.(map[string]any); ok {
				for ak, av := range attrs {
					it.Attributes[ak] = av
				}
			}
		default:
			it.Attributes[k] = v
		}
	}
	if len(it.Attributes) == 0 {
		it.Attributes = nil
	}
	return it
}
