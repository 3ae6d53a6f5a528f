package memory

import (
	"reflect"

	"github.com/matzehuels/relgraph/pkg/relation"
)

// match reports whether got satisfies want. A slice want matches any of its
// elements.
func match(got, want any) bool {
	if want != nil {
		if v := reflect.ValueOf(want); v.Kind() == reflect.Slice {
			for i := range v.Len() {
				if relation.SameValue(got, v.Index(i).Interface()) {
					return true
				}
			}
			return false
		}
	}
	return relation.SameValue(got, want)
}
