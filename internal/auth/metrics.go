package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"})
	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"})
	migrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forum_password_migrations_total",
			Help: "Legacy credentials upgraded to bcrypt on login.",
		})
)
