package user

import "time"

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Email       string
	Settings    Settings
}

type Settings struct {
	Timezone     string
	WeekFirstDay time.Weekday
	Currency     string
}
