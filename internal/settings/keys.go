package settings

// Keyspace:
// - sub/{id}/interests
// - sub/{id}/criteria
// - group/{name}

var (
	subPrefix      = []byte("sub/")
	interestSuffix = []byte("/interests")
	criteriaSuffix = []byte("/criteria")
	groupPrefix    = []byte("group/")
)

func interestKey(subscriberID string) []byte {
	// sub/{id}/interests
	b := make([]byte, 0, len(subPrefix)+len(subscriberID)+len(interestSuffix))
	b = append(b, subPrefix...)
	b = append(b, subscriberID...)
	b = append(b, interestSuffix...)
	return b
}

func criteriaKey(subscriberID string) []byte {
	// sub/{id}/criteria
	b := make([]byte, 0, len(subPrefix)+len(subscriberID)+len(criteriaSuffix))
	b = append(b, subPrefix...)
	b = append(b, subscriberID...)
	b = append(b, criteriaSuffix...)
	return b
}

func groupKey(name string) []byte {
	// group/{name}
	b := make([]byte, 0, len(groupPrefix)+len(name))
	b = append(b, groupPrefix...)
	b = append(b, name...)
	return b
}
