// Package queue implements the named message queues of the outbound
// delivery pipeline and the dispatcher that drains them to the partner
// transport.
//
// Three backends satisfy delivery.QueueManager and delivery.Browser:
// GormQueueManager (a queue_entries table), RedisQueueManager (one Redis
// list per queue) and MemoryQueueManager. All of them notify subscribed
// listeners after an entry is enqueued in the same process.
package queue
