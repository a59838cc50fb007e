package devserver

type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	DOB      string `json:"dob"`
}

type registerResponse struct {
	Message  string `json:"message"`
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

type questionResponse struct {
	ID        int    `json:"id"`
	Statement string `json:"question_statement"`
	Option1   string `json:"option1"`
	Option2   string `json:"option2"`
	Option3   string `json:"option3"`
	Option4   string `json:"option4"`
	Points    int    `json:"points"`
}

type attemptResponse struct {
	ID             int                `json:"id"`
	Name           string             `json:"name"`
	TotalQuestions int                `json:"total_questions"`
	DateOfQuiz     string             `json:"date_of_quiz"`
	EndTime        string             `json:"end_time"`
	Questions      []questionResponse `json:"questions"`
}

type answerRequest struct {
	QuestionID     int  `json:"question_id"`
	SelectedOption *int `json:"selected_option"`
}

type submitRequest struct {
	Answers []answerRequest `json:"answers"`
}

type scoreResponse struct {
	ID         int    `json:"id"`
	QuizID     int    `json:"quiz_id"`
	UserID     int    `json:"user_id"`
	TotalScore int    `json:"total_score"`
	Timestamp  string `json:"timestamp"`
}

type submitResponse struct {
	Message        string        `json:"message"`
	CorrectAnswers int           `json:"correct_answers"`
	Score          scoreResponse `json:"score"`
}

type scoreSummaryResponse struct {
	QuizName       string `json:"quiz_name"`
	UserScore      int    `json:"user_score"`
	TotalQuizScore int    `json:"total_quiz_score"`
	CorrectAnswers int    `json:"number_of_correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	DateOfQuiz     string `json:"date_of_quiz"`
	TimeDuration   string `json:"time_duration"`
}

type questionResultResponse struct {
	questionResponse
	UserAnswer    *int `json:"user_answer"`
	CorrectOption int  `json:"correct_option"`
	IsCorrect     bool `json:"is_correct"`
}

type resultsResponse struct {
	QuizName  string                   `json:"quiz_name"`
	Questions []questionResultResponse `json:"questions"`
}

type historyResponse struct {
	ScoreID    int    `json:"score_id"`
	QuizID     int    `json:"quiz_id"`
	QuizName   string `json:"quiz_name"`
	TotalScore int    `json:"total_score"`
	Timestamp  string `json:"timestamp"`
}

// signupResponse reports "?" for the score fields of quizzes not yet taken.
type signupResponse struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	DateOfQuiz     string `json:"date_of_quiz"`
	TimeDuration   string `json:"time_duration"`
	Remarks        string `json:"remarks"`
	ChapterName    string `json:"chapter_name"`
	SubjectName    string `json:"subject_name"`
	Status         string `json:"status"`
	UserScore      any    `json:"user_score"`
	TotalQuizScore int    `json:"total_quiz_score"`
	CorrectAnswers any    `json:"number_of_correct_answers"`
	TotalQuestions int    `json:"total_questions"`
}
