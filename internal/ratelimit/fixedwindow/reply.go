package fixedwindow

import (
	"errors"
	"fmt"
	"strconv"
)

var errUnexpectedReply = errors.New("fixedwindow: unexpected script reply")

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("fixedwindow: unsupported reply type %T", v)
	}
}
