package models

import "time"

// Program is a bounty program that reports are submitted against.
type Program struct {
	ID                   int64
	Name                 string
	Description          string
	ApplicationStartDate time.Time
	ApplicationEndDate   time.Time
	Status               string
}
