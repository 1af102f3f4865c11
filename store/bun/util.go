package bun

import (
	"database/sql"
	"strings"
)

func isAffected(res sql.Result) bool {
	rows, err := res.RowsAffected()
	if err != nil {
		return true
	}
	return rows != 0
}

func getAffected(res sql.Result) int64 {
	ret, err := res.RowsAffected()
	if err != nil {
		return -1
	}
	return ret
}

func joinQueues(queues []string) string {
	return strings.Join(queues, ",")
}

func splitQueues(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
