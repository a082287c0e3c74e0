// Package admin provides the operator commands of the segstore CLI. They
// talk to the configured bucket directly, not through the HTTP server.
//
// Usage
//
//	segstore segments list --topic orders/eu
//	segstore segments list --topic orders/eu --filter 'count > 1000 && size < 1048576'
//	segstore segments cat --topic orders/eu --from 2021-04-21T05:47:10.694Z --offset 343 > tail.bin
//	segstore segments dump --topic orders/eu --from 1618984030694 --limit 10
//	segstore segments upload --topic orders/eu --file ./segment.avro --from 1618984030694
//	segstore segments delete --topic orders/eu --before 2021-05-01T00:00:00Z --confirm
//
//	segstore metadata keys --topic orders/eu
//	segstore metadata put --topic orders/eu --key cursor --value 42
//	segstore metadata get --topic orders/eu --key cursor
//	segstore metadata rm --topic orders/eu --key cursor
//
// Timestamps accept Unix milliseconds, RFC3339, or the segment filename form.
package admin
