//go:build !sqlite
// +build !sqlite

package auditlog

import (
	"errors"

	logx "hookrelay/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite audit storage not built: build with -tags sqlite")
}
