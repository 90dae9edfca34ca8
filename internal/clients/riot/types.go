package riot

import "encoding/json"

// AccountResponse is the response from /riot/account/v1/accounts/by-riot-id.
type AccountResponse struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// MatchDetail is the decoded response from /lol/match/v5/matches/{matchId}.
// Raw keeps the untouched provider payload so the persistence layer can store
// it as an opaque blob for downstream replay.
type MatchDetail struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`

	Raw json.RawMessage `json:"-"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type MatchInfo struct {
	GameStartTimestamp int64         `json:"gameStartTimestamp"`
	GameDuration       int           `json:"gameDuration"`
	QueueID            int           `json:"queueId"`
	Participants       []Participant `json:"participants"`
}

type Participant struct {
	PUUID                       string `json:"puuid"`
	RiotIDGameName              string `json:"riotIdGameName"`
	RiotIDTagline               string `json:"riotIdTagline"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	ChampionName                string `json:"championName"`
	Win                         bool   `json:"win"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
	GoldEarned                  int    `json:"goldEarned"`
	TotalMinionsKilled          int    `json:"totalMinionsKilled"`
	VisionScore                 int    `json:"visionScore"`
	TeamPosition                string `json:"teamPosition"`
	Lane                        string `json:"lane"`
}
