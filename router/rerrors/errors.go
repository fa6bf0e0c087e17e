package rerrors

import "fmt"

var ErrAlwaysFalse = fmt.Errorf("sharding conditions can never be satisfied")
var ErrEmptyRoute = fmt.Errorf("no data node matches the sharding conditions")
var ErrNoDataSource = fmt.Errorf("no datasource is configured")
var ErrUnknownDataSource = fmt.Errorf("hinted datasource is not configured")
var ErrNoCommonDataSource = fmt.Errorf("tables share no datasource")
