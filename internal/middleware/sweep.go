package middleware

import "github.com/gin-gonic/gin"

type SweepTriggerer interface {
	Trigger() bool
}

// SweepTrigger cada request intenta disparar el barrido; el sweeper decide si toca.
func SweepTrigger(s SweepTriggerer) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.Trigger()
		c.Next()
	}
}
