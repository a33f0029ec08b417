package models

import "time"

// SpottedFlight is an aircraft a user saved from the focus view
type SpottedFlight struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Callsign      string    `json:"callsign"`
	TailNum       string    `json:"tail_num"`
	ManNum        string    `json:"man_num"`
	ManYear       string    `json:"man_year"`
	RegName       string    `json:"reg_name"`
	ManName       string    `json:"man_name"`
	ModelNum      string    `json:"model_num"`
	ThumbnailSrc  string    `json:"thumbnail_src"`
	Photographer  string    `json:"photographer"`
	OriginCountry string    `json:"origin_country"`
	CreatedAt     time.Time `json:"created_at"`
}

// User is an account without its password hash
type User struct {
	ID       int64  `json:"-"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
