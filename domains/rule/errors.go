package rule

import "errors"

var (
	ErrRuleNotFound  = errors.New("access rule not found")
	ErrDuplicateRule = errors.New("access rule already exists")
)
