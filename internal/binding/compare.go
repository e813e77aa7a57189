package binding

import (
	"strings"
	"time"
)

// compareValues is a three-way comparison over raw field values: -1 when a
// sorts before b, 1 when after, 0 otherwise. Values of different or unknown
// kinds compare equal so that sorting stays stable on them.
func compareValues(a, b any) int {
	switch left := a.(type) {
	case time.Time:
		if right, ok := asTime(b); ok {
			return left.Compare(right)
		}
	case string:
		if right, ok := b.(string); ok {
			leftTime, leftIsTime := parseTimestamp(left)
			rightTime, rightIsTime := parseTimestamp(right)
			if leftIsTime && rightIsTime {
				return leftTime.Compare(rightTime)
			}
			return strings.Compare(left, right)
		}
		if right, ok := b.(time.Time); ok {
			if leftTime, ok := parseTimestamp(left); ok {
				return leftTime.Compare(right)
			}
		}
	case bool:
		if right, ok := b.(bool); ok {
			switch {
			case left == right:
				return 0
			case !left:
				return -1
			default:
				return 1
			}
		}
	default:
		if leftNumber, ok := asNumber(a); ok {
			if rightNumber, ok := asNumber(b); ok {
				switch {
				case leftNumber < rightNumber:
					return -1
				case leftNumber > rightNumber:
					return 1
				}
			}
		}
	}
	return 0
}

func asTime(value any) (time.Time, bool) {
	switch typed := value.(type) {
	case time.Time:
		return typed, true
	case string:
		return parseTimestamp(typed)
	}
	return time.Time{}, false
}

func parseTimestamp(value string) (time.Time, bool) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func asNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case int64:
		return float64(typed), true
	case int:
		return float64(typed), true
	case float64:
		return typed, true
	}
	return 0, false
}
