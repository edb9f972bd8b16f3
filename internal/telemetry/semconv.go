package telemetry

import "go.opentelemetry.io/otel/attribute"

// Semantic convention attribute keys for spawnpool telemetry.
const (
	AttrScene       = attribute.Key("scene")
	AttrPoolName    = attribute.Key("pool.name")
	AttrEnvironment = attribute.Key("environment")
)

// Metric names.
const (
	MetricPoolFree      = "pool.free"
	MetricPoolSpawned   = "pool.spawned"
	MetricFrameDuration = "sim.frame.duration"
)

// PoolAttributes returns common attributes for pool metrics.
func PoolAttributes(scene, pool string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrScene.String(scene),
		AttrPoolName.String(pool),
	}
}
