package pkg

import "fmt"

var (
	// These variables are here only to show current version. They are set in makefile during build process
	ShardgateVersion         = "devel"
	GitRevision              = "devel"
	ShardgateVersionRevision = fmt.Sprintf("%s-%s", ShardgateVersion, GitRevision)
)
