// Package executor runs expanded job instances to completion. Instances
// are independent and execute concurrently on a worker pool; within one
// instance, steps run strictly in declaration order and the first failure
// stops the instance. Instances of a job that needs another job wait until
// every instance of the needed job has succeeded.
package executor
