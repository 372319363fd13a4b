package asset

// Header carries the fields every member of a bundle shares. It is taken from the first
// member when the bundle is built and never reassigned.
type Header struct {
	ServiceName  string
	BuildNumber  string
	Tag          string
	Minification MinificationConfig
}

// Bundle is the set of descriptors merged into one output artifact.
type Bundle struct {
	Key     string
	Header  Header
	Members []Descriptor
}

// GroupByBundle groups descriptors by BundleKey. Bundles are returned in order of first
// appearance and members keep their input order, so the merge order is a pure function
// of discovery order.
func GroupByBundle(descriptors []Descriptor) []Bundle {
	index := make(map[string]int)
	var bundles []Bundle
	for _, d := range descriptors {
		i, ok := index[d.BundleKey]
		if !ok {
			i = len(bundles)
			index[d.BundleKey] = i
			bundles = append(bundles, Bundle{
				Key: d.BundleKey,
				Header: Header{
					ServiceName:  d.ServiceName,
					BuildNumber:  d.BuildNumber,
					Tag:          d.Tag,
					Minification: d.Minification,
				},
			})
		}
		bundles[i].Members = append(bundles[i].Members, d)
	}
	return bundles
}

// Split partitions descriptors into js, css and everything else, preserving order.
func Split(descriptors []Descriptor) (js, css, other []Descriptor) {
	for _, d := range descriptors {
		switch d.Type {
		case TypeJS:
			js = append(js, d)
		case TypeCSS:
			css = append(css, d)
		default:
			other = append(other, d)
		}
	}
	return js, css, other
}
