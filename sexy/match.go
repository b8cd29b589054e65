package sexy

import "fmt"

// Match reports whether actual matches pattern, returning an error that names
// the first mismatching path when it does not.
//
// An ellipsis matches any single datum. As the last item of a list it matches
// any number of remaining items, including none.
func Match(pattern, actual *Node) error {
	return match(pattern, actual, "root")
}

func match(pattern, actual *Node, path string) error {
	if pattern.Type == NodeEllipsis {
		return nil
	}
	if pattern.Type != actual.Type {
		return fmt.Errorf("at %s: expected %s %s, got %s %s", path, pattern.Type, pattern, actual.Type, actual)
	}
	if pattern.IsAtom() {
		if pattern.Text != actual.Text {
			return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
		}
		return nil
	}

	items := pattern.Items
	rest := false
	if n := len(items); n > 0 && items[n-1].Type == NodeEllipsis {
		items = items[:n-1]
		rest = true
	}

	if len(actual.Items) < len(items) || (!rest && len(actual.Items) != len(items)) {
		return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
	}
	for i, item := range items {
		if err := match(item, actual.Items[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
