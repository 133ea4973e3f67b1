package models

// PlanRequest 플래너 서비스 POST /path 요청 본문
type PlanRequest struct {
	Obstacles []Obstacle `json:"obstacles"`
	Mode      string     `json:"mode,omitempty"`
	BigTurn   string     `json:"big_turn"`
	RobotX    int        `json:"robot_x"`
	RobotY    int        `json:"robot_y"`
	RobotDir  int        `json:"robot_dir"`
	Retrying  bool       `json:"retrying"`
}

// PlanResult 플래너 응답의 data 필드
type PlanResult struct {
	Distance float64         `json:"distance"`
	Path     []WaypointState `json:"path"`
	Commands []string        `json:"commands"`
}

// PlanResponse 플래너 응답
type PlanResponse struct {
	Data  PlanResult `json:"data"`
	Error *string    `json:"error"`
}
