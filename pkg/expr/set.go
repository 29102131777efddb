package expr

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
)

// NewSet builds a Go set (map[T]struct{}) that AddValue sends as a DynamoDB set.
func NewSet[T comparable](members ...T) map[T]struct{} {
	set := make(map[T]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set
}

// isSet reports whether value is a Go set, i.e. a map with struct{} elements.
func isSet(value any) bool {
	t := reflect.TypeOf(value)
	if t == nil || t.Kind() != reflect.Map {
		return false
	}
	elem := t.Elem()
	return elem.Kind() == reflect.Struct && elem.NumField() == 0
}

// ConvertSet converts a Go set into an SS, NS or BS attribute value. Members must
// all be strings, all numbers, or all byte arrays; empty sets are rejected
// because DynamoDB cannot store them. Members are sorted for stable output.
func ConvertSet(value any) (types.AttributeValue, error) {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: %T is not a set", tkErrors.ErrUnsupportedType, value)
	}

	members := make([]reflect.Value, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		members = append(members, unwrapInterface(iter.Key()))
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: empty set", tkErrors.ErrUnsupportedType)
	}

	switch setKind(members[0]) {
	case "SS":
		out := make([]string, len(members))
		for i, m := range members {
			if setKind(m) != "SS" {
				return nil, mixedSetError(m)
			}
			out[i] = m.String()
		}
		sort.Strings(out)
		return &types.AttributeValueMemberSS{Value: out}, nil

	case "NS":
		nums := make([]float64, len(members))
		out := make([]string, len(members))
		for i, m := range members {
			if setKind(m) != "NS" {
				return nil, mixedSetError(m)
			}
			out[i], nums[i] = formatNumber(m)
		}
		sort.Sort(numberSet{strs: out, nums: nums})
		return &types.AttributeValueMemberNS{Value: out}, nil

	case "BS":
		out := make([][]byte, len(members))
		for i, m := range members {
			if setKind(m) != "BS" {
				return nil, mixedSetError(m)
			}
			b := make([]byte, m.Len())
			reflect.Copy(reflect.ValueOf(b), m)
			out[i] = b
		}
		sort.Slice(out, func(i, j int) bool { return string(out[i]) < string(out[j]) })
		return &types.AttributeValueMemberBS{Value: out}, nil

	default:
		return nil, fmt.Errorf("%w: set member type %s", tkErrors.ErrUnsupportedType, members[0].Type())
	}
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func setKind(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return "SS"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "NS"
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return "BS"
		}
	}
	return ""
}

func mixedSetError(v reflect.Value) error {
	return fmt.Errorf("%w: mixed member types in set (%s)", tkErrors.ErrUnsupportedType, v.Type())
}

func formatNumber(v reflect.Value) (string, float64) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), float64(v.Uint())
	default:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), v.Float()
	}
}

type numberSet struct {
	strs []string
	nums []float64
}

func (s numberSet) Len() int           { return len(s.strs) }
func (s numberSet) Less(i, j int) bool { return s.nums[i] < s.nums[j] }
func (s numberSet) Swap(i, j int) {
	s.strs[i], s.strs[j] = s.strs[j], s.strs[i]
	s.nums[i], s.nums[j] = s.nums[j], s.nums[i]
}
