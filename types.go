package mgm

import (
	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

// Re-export adapter types for convenience
type (
	Event                 = adapters.Event
	EventBatch            = adapters.EventBatch
	BatchContext          = adapters.BatchContext
	Timestamp             = adapters.Timestamp
	EventStore            = adapters.EventStore
	StateStore            = adapters.StateStore
	NetworkAdapter        = adapters.NetworkAdapter
	Response              = adapters.Response
	ExperimentsResponse   = adapters.ExperimentsResponse
	ExperimentDefinition  = adapters.ExperimentDefinition
	LoggerAdapter         = adapters.LoggerAdapter
	LogLevel              = adapters.LogLevel
	LifecycleAdapter      = adapters.LifecycleAdapter
	LifecycleObserver     = adapters.LifecycleObserver
	DeviceContext         = adapters.DeviceContext
	DeviceContextProvider = adapters.DeviceContextProvider
)

// SDK identification sent with every request.
const (
	sdkName    = "mgm-go"
	sdkVersion = "1.2.0"
)
