/*
Package storage persists the monitor snapshot.

Two backends implement Store:

  - FileStore writes a single JSON document, replaced atomically through a
    temporary file and rename. It is the default.
  - BoltStore keeps the same document in a bbolt database, for hosts where
    the state lives next to other embedded data.

# Document format

	{
	  "containers": {
	    "shop_bi_api": {
	      "name": "shop_bi_api",
	      "status": "exited",
	      "health": null,
	      "last_check": "2024-05-01T09:00:00Z",
	      "downtime_start": "2024-05-01T09:00:00Z",
	      "last_status": "exited"
	    }
	  },
	  "last_update": "2024-05-01T09:00:00Z"
	}

Absent health and downtime_start are written as null. Timestamps are UTC
RFC 3339.

# Failure handling

Load never fails. A missing, empty or corrupt document yields an empty
snapshot and a warning in the log, since the state is rebuilt by the next
observation pass. Save returns the write error to the caller.
*/
package storage
