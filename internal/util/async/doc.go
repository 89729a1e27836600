// Package async runs independent tasks on a bounded worker pool.
package async
