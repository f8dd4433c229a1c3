package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simcam_frames_delivered_total",
		Help: "Frames delivered through the camera callback, live or loaded from snapshot.",
	}, []string{"camera"})

	paramWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simcam_param_writes_total",
		Help: "Parameter writes received over HTTP.",
	}, []string{"camera"})
)
