package model

import "strings"

// Storage key layout. Every run is one item under PK=RUN#<id>, SK=METADATA.
// Active runs additionally carry GSI1PK=ACTIVE_RUN and GSI1SK=DAY#<day>.
const (
	runKeyPrefix    = "RUN#"
	daySortPrefix   = "DAY#"
	MetadataSortKey = "METADATA"
	ActivePartition = "ACTIVE_RUN"
	ActiveIndexName = "GSI1"
)

// PartitionKey returns the primary partition key for a run id.
func PartitionKey(id string) string {
	return runKeyPrefix + id
}

// IDFromPartitionKey is the inverse of PartitionKey. It returns "" when pk
// is not a run key.
func IDFromPartitionKey(pk string) string {
	if !strings.HasPrefix(pk, runKeyPrefix) {
		return ""
	}
	return strings.TrimPrefix(pk, runKeyPrefix)
}

// DaySortKey returns the active-index sort key for a weekday.
func DaySortKey(d Day) string {
	return daySortPrefix + string(d)
}

// DayFromSortKey is the inverse of DaySortKey.
func DayFromSortKey(sk string) Day {
	return Day(strings.TrimPrefix(sk, daySortPrefix))
}
