// Package metrics exposes the VFS's own operation counters through
// prometheus/client_golang: block I/O, path resolutions, mount
// crossings, symlink follows and character-device opens.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BlockReads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vfscore",
		Subsystem: "blockdev",
		Name:      "block_reads_total",
		Help:      "Number of whole-block reads issued to a BlockDevice.",
	})

	BlockWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vfscore",
		Subsystem: "blockdev",
		Name:      "block_writes_total",
		Help:      "Number of whole-block writes issued to a BlockDevice.",
	})

	PathResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfscore",
		Subsystem: "pathwalk",
		Name:      "resolutions_total",
		Help:      "Number of path resolutions, partitioned by outcome.",
	}, []string{"outcome"})

	SymlinkFollows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vfscore",
		Subsystem: "pathwalk",
		Name:      "symlink_follows_total",
		Help:      "Number of symlink dereferences consumed from the follow budget.",
	})

	MountCrossings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfscore",
		Subsystem: "rootfs",
		Name:      "mount_crossings_total",
		Help:      "Number of times path resolution crossed a mount point.",
	}, []string{"direction"})

	CharDeviceOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfscore",
		Subsystem: "chardev",
		Name:      "opens_total",
		Help:      "Number of character-device opens, partitioned by major.",
	}, []string{"major"})
)
