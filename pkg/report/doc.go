// Package report is the operator anomaly channel: data inconsistencies,
// swallowed mirror failures, and confirmation timeouts are reported here
// rather than failing the request that detected them.
package report
