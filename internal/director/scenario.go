package director

// Scenario is the motion plan of a render: one slide per clip with the camera
// window at its first and last frame. It is written next to the video as
// plan.yaml and can be edited and fed back to override motions.
type Scenario struct {
	Version string  `yaml:"version"`
	Title   string  `yaml:"title,omitempty"`
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	FPS     int     `yaml:"fps"`
	Slides  []Slide `yaml:"slides"`
}

// Slide is one clip of the plan.
type Slide struct {
	ID        int        `yaml:"id"`
	Input     string     `yaml:"input"`
	Start     float64    `yaml:"start"`
	Duration  float64    `yaml:"duration"`
	Motion    string     `yaml:"motion"`
	Intensity float64    `yaml:"intensity"`
	Origin    string     `yaml:"origin,omitempty"` // guide, script, plan or default
	Keyframes []Keyframe `yaml:"keyframes,omitempty"`
}

// Keyframe is the camera window at a point of the clip, in upscaled source pixels.
type Keyframe struct {
	Time  float64   `yaml:"time"`
	Focus string    `yaml:"focus"`
	Rect  Rectangle `yaml:"rect"`
	Zoom  float64   `yaml:"zoom"`
}

type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Slide returns the slide with the given id.
func (s *Scenario) Slide(id int) (Slide, bool) {
	if s == nil {
		return Slide{}, false
	}
	for _, sl := range s.Slides {
		if sl.ID == id {
			return sl, true
		}
	}
	return Slide{}, false
}
