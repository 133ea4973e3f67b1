package models

// Obstacle 태블릿이 등록한 장애물. Heading은 촬영할 마커가 있는 면
type Obstacle struct {
	ID      int     `json:"id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Heading Heading `json:"d"`
}
