// Package metrics содержит счётчики prometheus для ключевых событий сервиса
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LicensesActivated счётчик успешных активаций лицензионных ключей
	LicensesActivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licenses_activated_total",
		Help: "Total number of successfully activated license keys.",
	})

	// LicensesGenerated счётчик сгенерированных лицензионных ключей
	LicensesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licenses_generated_total",
		Help: "Total number of generated license keys.",
	})

	// LicensesReaped счётчик просроченных лицензий, перенесённых в архив
	LicensesReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licenses_reaped_total",
		Help: "Total number of expired licenses moved to the archive.",
	})

	// UsersDeactivated счётчик пользователей, помеченных неактивными трекером
	UsersDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "users_deactivated_total",
		Help: "Total number of users marked inactive by the activity tracker.",
	})
)
